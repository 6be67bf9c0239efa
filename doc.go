// Package autonrec records driver commands on a competition robot and plays
// them back as autonomous routines.
//
// Routines are sampled at a fixed rate into a buffer, saved to numbered
// slots with an optional name, and replayed tick for tick. A programming
// skills run is recorded as several consecutive sections that play back
// as one chain.
//
// # Installation
//
//	go install github.com/gwillem/autonrec/cmd/autonrec@latest
//
// # Usage
//
// Detect and calibrate the leader (command source) and follower (actuator)
// arms:
//
//	autonrec setup
//
// Then drive, record and play back:
//
//	autonrec drive
//
// Or try everything on a simulated robot:
//
//	autonrec sim
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/autonrec: CLI with setup, drive, sim and routines commands
//   - pkg/recorder: slot selector, name entry, recorder, playback and persistence
//   - pkg/robot: command snapshots, servo arms, calibration and configuration
//   - pkg/store: directory, SQLite and in-memory routine storage
//   - pkg/teleop: operator-control loop
//   - pkg/sim: virtual operator panel and drivetrain
//   - pkg/telemetry: MQTT event publisher
package autonrec
