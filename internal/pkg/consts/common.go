package consts

const (
	RoleAdmin = "ADMIN"
)

const (
	MaxMessageLength = 4000
	MaxPageSize      = 100
	DefaultPageSize  = 20
)
