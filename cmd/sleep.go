// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sleepCmd = &cobra.Command{
	Use:   "sleep",
	Short: "Stop the fan and laser",
	Long: `Put the sensor to sleep. The fan and laser stop until "wake" is sent,
which extends the life of the laser diode between measurements.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkState(true)
	},
}

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Start the fan and laser",
	Long: `Wake the sensor up. Readings need about 30 seconds of airflow to
settle after waking.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkState(false)
	},
}

func init() {
	rootCmd.AddCommand(sleepCmd)
	rootCmd.AddCommand(wakeCmd)
}

func runWorkState(sleep bool) error {
	sensor, conn, _, err := openSensor()
	if err != nil {
		return err
	}
	defer conn.Close()

	if sleep {
		if !sensor.SetSleep() {
			return withExitCode(1, fmt.Errorf("sensor did not confirm sleep"))
		}
		fmt.Printf("Sensor sleeping\n")
		return nil
	}

	if !sensor.SetWork() {
		return withExitCode(1, fmt.Errorf("sensor did not confirm wake"))
	}
	fmt.Printf("Sensor working\n")
	return nil
}
