// +build filelog

package build

// LoggingType is LogTypeDefault in builds made with `go build -tags filelog`.
// Nothing reads it: claimengined writes to stdout and its rotating log file
// in every build.
const LoggingType = LogTypeDefault
