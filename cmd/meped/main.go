package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"meped.toml" description:"Configuration file"`
	Verbose bool   `short:"v" long:"verbose" description:"Log debug messages"`

	Setup     SetupCommand     `command:"setup" description:"Find the servo bus and write the configuration"`
	Calibrate CalibrateCommand `command:"calibrate" alias:"trim" description:"Adjust and save servo trim"`
	Run       RunCommand       `command:"run" alias:"walk" description:"Drive the robot from the keyboard"`
	Transform TransformCommand `command:"transform" description:"Print the leg index transformation tables"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "meped - mePed V2 quadruped servo control"

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
