package version

// Version is the omnichat release version, overridable at build time via
// -ldflags "-X omnichat/internal/version.Version=...".
var Version = "0.1.0"
