package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"autonrec.toml" description:"Configuration file"`

	Setup    SetupCommand    `command:"setup" description:"Scan for arms, assign roles and calibrate channels"`
	Drive    DriveCommand    `command:"drive" description:"Operator control with the leader and follower arms"`
	Sim      SimCommand      `command:"sim" description:"Operator control of a simulated robot"`
	Routines RoutinesCommand `command:"routines" alias:"ls" description:"List stored routines or dump one"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "autonrec - record and play back autonomous routines"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
