package capture

// Version is the profile buffer library version.
const Version = "1.2.0"
