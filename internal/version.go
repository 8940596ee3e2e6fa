package internal

// Version is the poetcard release version.
const Version = "0.3.0"
