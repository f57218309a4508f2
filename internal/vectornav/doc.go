// Package vectornav implements the VN-310 INS/GNSS serial protocol driver.
//
// The package is organised around the path a frame takes through the system:
//
//   - Classify inspects a raw byte run and copies it into the driver-owned
//     assembled buffer (message.go).
//   - Driver owns that buffer, the ready flag and the stream toggles, and
//     encodes outgoing commands (driver.go, command.go).
//   - Applet is the run loop: once per tick it consumes a ready frame, decodes
//     it through the ASCII parser or an injected BinaryDecoder, and publishes
//     the normalized pose to a Router (applet.go, parser.go, pose.go).
//
// The transport is not part of this package; anything implementing
// Transmitter can carry commands and anything able to call
// Driver.OnBytesReceived can deliver frames.
package vectornav
