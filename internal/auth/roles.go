package auth

// Postgres roles carried in the Supabase access token.
const (
	RoleAuthenticated = "authenticated"
	RoleAnon          = "anon"
	RoleServiceRole   = "service_role"
)
