// +build !filelog

package build

// LoggingType is LogTypeStdOut in builds made without `-tags filelog`.
// Nothing reads it: claimengined writes to stdout and its rotating log file
// in every build.
const LoggingType = LogTypeStdOut
