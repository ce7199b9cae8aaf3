package utils

// Application constants
const (
	// Application name
	AppName = "Storefront"

	// API version
	APIVersion = "v1"

	// Default port
	DefaultPort = "8080"

	// Default pagination limit
	DefaultPaginationLimit = 10

	// Maximum pagination limit
	MaxPaginationLimit = 100

	// Maximum length of a phone number on an order
	MaxPhoneLength = 13
)
