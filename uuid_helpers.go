package auth

// HasUserUUID reports whether the session carries a parseable user UUID.
func HasUserUUID(session Session) bool {
	if session == nil {
		return false
	}
	_, err := session.GetUserUUID()
	return err == nil
}
