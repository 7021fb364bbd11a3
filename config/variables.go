/*
NAME
  variables.go

DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"
)

// Config map Keys.
const (
	KeyBlockSize  = "BlockSize"
	KeyLeftPath   = "LeftPath"
	KeyLogging    = "logging"
	KeyLogPath    = "LogPath"
	KeyLoopPoint  = "LoopPoint"
	KeyOutDir     = "OutDir"
	KeyOutputPath = "OutputPath"
	KeyRightPath  = "RightPath"
	KeySampleRate = "SampleRate"
	KeySuppress   = "Suppress"
	KeyWatchDir   = "WatchDir"
)

// Config map parameter types.
const (
	typeString = "string"
	typeUint   = "uint"
	typeBool   = "bool"
	typeFloat  = "float"
)

// Default variable values.
const (
	defaultSampleRate = 32000
	defaultBlockSize  = 0x10000
	defaultLoopPoint  = 0
	defaultVerbosity  = logging.Info
)

// Variables describes the variables that can be used for transcode control.
// These structs provide the name and type of variable, a function for updating
// this variable in a Config, and a function for validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyBlockSize,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.BlockSize = parseUint(KeyBlockSize, v, c) },
		Validate: func(c *Config) {
			if c.BlockSize == 0 || c.BlockSize%64 != 0 {
				c.LogInvalidField(KeyBlockSize, defaultBlockSize)
				c.BlockSize = defaultBlockSize
			}
		},
	},
	{
		Name:   KeyLeftPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.LeftPath = v },
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyLogPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.LogPath = v },
	},
	{
		Name: KeyLoopPoint,
		Type: typeFloat,
		Update: func(c *Config, v string) {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				c.Logger.Warning("invalid LoopPoint param", "value", v)
				return
			}
			c.LoopPoint = f
		},
		Validate: func(c *Config) {
			if c.LoopPoint < 0 || math.IsNaN(c.LoopPoint) || math.IsInf(c.LoopPoint, 0) {
				c.LogInvalidField(KeyLoopPoint, defaultLoopPoint)
				c.LoopPoint = defaultLoopPoint
			}
		},
	},
	{
		Name:   KeyOutDir,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutDir = v },
		Validate: func(c *Config) {
			if c.OutDir == "" {
				c.OutDir = c.WatchDir
			}
		},
	},
	{
		Name:   KeyOutputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutputPath = v },
	},
	{
		Name:   KeyRightPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.RightPath = v },
	},
	{
		Name:   KeySampleRate,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.SampleRate = parseUint(KeySampleRate, v, c) },
		Validate: func(c *Config) {
			if c.SampleRate == 0 || c.SampleRate > math.MaxUint32 {
				c.LogInvalidField(KeySampleRate, defaultSampleRate)
				c.SampleRate = defaultSampleRate
			}
		},
	},
	{
		Name: KeySuppress,
		Type: typeBool,
		Update: func(c *Config, v string) {
			c.Suppress = parseBool(KeySuppress, v, c)
			if l, ok := c.Logger.(*logging.JSONLogger); ok {
				l.SetSuppress(c.Suppress)
			}
		},
	},
	{
		Name:   KeyWatchDir,
		Type:   typeString,
		Update: func(c *Config, v string) { c.WatchDir = v },
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}
