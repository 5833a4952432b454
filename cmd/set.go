// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sdsprobe/internal/config"
	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change a sensor setting",
	Long: `Change the reporting mode, working period or device id of the sensor.

A setting only counts as applied when the sensor echoes the requested value.

Exit codes:
  0 - Setting applied
  1 - No valid reply, or the sensor reported a different value
  2 - Connection error`,
}

var setModeCmd = &cobra.Command{
	Use:       "mode active|query",
	Short:     "Set the data reporting mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"active", "query"},
	RunE:      runSetMode,
}

var setPeriodCmd = &cobra.Command{
	Use:   "period MINUTES",
	Short: "Set the working period (0 = continuous, 1-30 minutes)",
	Long: `Set the working period. With a period of N minutes the sensor sleeps
and wakes up to report once every N minutes; 0 selects continuous operation.
The setting survives power off.`,
	Args: cobra.ExactArgs(1),
	RunE: runSetPeriod,
}

var setIDCmd = &cobra.Command{
	Use:   "id NEWID",
	Short: "Assign a new device id (hex 0xA160 or decimal)",
	Long: `Assign a new device id. The setting survives power off.

Address the sensor with --device-id when more than one sensor shares the line;
otherwise every sensor that hears the broadcast takes the new id.`,
	Args: cobra.ExactArgs(1),
	RunE: runSetID,
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.AddCommand(setModeCmd)
	setCmd.AddCommand(setPeriodCmd)
	setCmd.AddCommand(setIDCmd)
}

// parseWorkingPeriod accepts 0-30 minutes
func parseWorkingPeriod(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n > sds011.MaxWorkingPeriod {
		return 0, fmt.Errorf("invalid working period %q: must be 0-%d minutes", s, sds011.MaxWorkingPeriod)
	}
	return uint8(n), nil
}

// parseNewDeviceID accepts any id except broadcast
func parseNewDeviceID(s string) (uint16, error) {
	id, err := config.ParseDeviceID(s)
	if err != nil {
		return 0, err
	}
	if id == sds011.DeviceIDBroadcast {
		return 0, fmt.Errorf("FFFF is the broadcast id and cannot be assigned")
	}
	return id, nil
}

func runSetMode(cmd *cobra.Command, args []string) error {
	mode, err := sds011.ParseReportingMode(args[0])
	if err != nil {
		return err
	}

	sensor, conn, _, err := openSensor()
	if err != nil {
		return err
	}
	defer conn.Close()

	if !sensor.SetDataReportingMode(mode) {
		return withExitCode(1, fmt.Errorf("sensor did not confirm reporting mode %s", mode))
	}
	fmt.Printf("Reporting mode set to %s\n", mode)
	return nil
}

func runSetPeriod(cmd *cobra.Command, args []string) error {
	minutes, err := parseWorkingPeriod(args[0])
	if err != nil {
		return err
	}

	sensor, conn, _, err := openSensor()
	if err != nil {
		return err
	}
	defer conn.Close()

	if !sensor.SetWorkingPeriod(minutes) {
		return withExitCode(1, fmt.Errorf("sensor did not confirm working period %d", minutes))
	}
	fmt.Printf("Working period set to %s\n", formatWorkingPeriod(minutes))
	return nil
}

func runSetID(cmd *cobra.Command, args []string) error {
	id, err := parseNewDeviceID(args[0])
	if err != nil {
		return err
	}

	sensor, conn, _, err := openSensor()
	if err != nil {
		return err
	}
	defer conn.Close()

	if !sensor.SetDeviceID(id) {
		return withExitCode(1, fmt.Errorf("sensor did not confirm device id %04X", id))
	}
	fmt.Printf("Device id set to %04X\n", id)
	return nil
}
