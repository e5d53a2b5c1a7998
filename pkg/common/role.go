package common

type Role string

const (
	Admin  Role = "admin"
	Clinic Role = "clinic"
)
