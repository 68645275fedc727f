package service

// RequireAnyRole returns ErrPermissionDenied unless memberRoles holds at
// least one of allowed.
func RequireAnyRole(memberRoles, allowed []string) error {
	need := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		need[id] = struct{}{}
	}
	for _, id := range memberRoles {
		if _, ok := need[id]; ok {
			return nil
		}
	}
	return ErrPermissionDenied
}
