package model

// Admin is the caller identity extracted from a verified admin token.
type Admin struct {
	Subject string
	Role    string
}
