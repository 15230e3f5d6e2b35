package version

// Version is the fruitstand version, overridden at build time with
// -ldflags "-X github.com/fruitstand/fruitstand/internal/version.Version=...".
var Version = "0.1.0"
