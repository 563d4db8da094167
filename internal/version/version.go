package version

// Version is the current version of legopile.
// Can be overridden at build time with -ldflags "-X ...version.Version=..."
var Version = "0.3.0"

// Name is the application name.
const Name = "legopile"

// Description is a short description of the application.
const Description = "Reduce raw Rebrickable CSV dumps into the lego_pile dataset"
