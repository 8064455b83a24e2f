package constants

// Version is the version of this library.
const Version = "1.0.0"

// Name is reported by the sopx front-end.
const Name = "sopx"
