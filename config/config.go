/*
NAME
  config.go

DESCRIPTION
  config.go contains the configuration settings for a DSP to HPS transcode.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for dsp2hps.
package config

import (
	"bufio"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"
)

// Errors returned by Validate, CheckVars and ReadVars.
var (
	ErrMissingPath  = errors.New("left, right and output paths must be set")
	ErrBadVarLine   = errors.New("expected key=value")
	ErrInvalidValue = errors.New("invalid config value")
)

// Config provides parameters for a transcode. Zero values are replaced by
// defaults in Validate.
type Config struct {
	// Logger holds an implementation of the Logger interface as defined in
	// github.com/ausocean/utils/logging. This must be set for config to work
	// correctly.
	Logger logging.Logger

	// LeftPath and RightPath are the left and right channel DSP files.
	LeftPath  string
	RightPath string

	// OutputPath is the HPS file to write.
	OutputPath string

	SampleRate uint // Samples a second (Hz), recorded in the output.

	// LoopPoint is the time in seconds playback loops back to at the end of
	// the stream. A LOOP<seconds> token in the left file name takes
	// precedence, see LoopFromName.
	LoopPoint float64

	BlockSize uint // Payload bytes of a full block, a multiple of 64.

	// LogLevel is the logging verbosity level.
	// Valid values are defined by enums from the logger package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	LogPath  string // Rotated log file, in addition to stderr. Empty for none.
	Suppress bool   // Holds logger suppression state.

	// WatchDir is a directory watched for <name>_L.dsp and <name>_R.dsp
	// pairs. When set the paths above are not used.
	WatchDir string

	// OutDir is where HPS files converted in watch mode are written. It
	// defaults to WatchDir.
	OutDir string
}

// Validate defaults any unset or invalid parameters and checks that the
// parameters needed for a transcode have been given.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	if c.WatchDir == "" && (c.LeftPath == "" || c.RightPath == "" || c.OutputPath == "") {
		return ErrMissingPath
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

// CheckVars returns an error wrapping ErrInvalidValue for the first value in
// vars that Validate would otherwise replace with a default. Use it where
// values are given explicitly, e.g. on the command line, and a silent default
// would be a surprise. Names not in Variables are ignored.
func CheckVars(vars map[string]string) error {
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		v := vars[n]
		var ok bool
		switch n {
		case KeySampleRate:
			r, err := strconv.ParseUint(v, 0, 32)
			ok = err == nil && r > 0
		case KeyBlockSize:
			b, err := strconv.ParseUint(v, 0, 32)
			ok = err == nil && b > 0 && b%64 == 0
		case KeyLoopPoint:
			f, err := strconv.ParseFloat(v, 64)
			ok = err == nil && f >= 0 && !math.IsInf(f, 0)
		case KeyLogging:
			switch v {
			case "Debug", "Info", "Warning", "Error", "Fatal":
				ok = true
			}
		case KeySuppress:
			ok = strings.EqualFold(v, "true") || strings.EqualFold(v, "false")
		default:
			ok = true
		}
		if !ok {
			return errors.Wrapf(ErrInvalidValue, "%s=%q", n, v)
		}
	}
	return nil
}

// loopToken matches the loop point embedded in a file name, e.g.
// "theme_LOOP12.5_L.dsp".
var loopToken = regexp.MustCompile(`LOOP[0-9]*\.?[0-9]+`)

// LoopFromName returns the loop point in seconds given by a LOOP<seconds>
// token in the base name of path, and whether there was one. Directory
// names are not searched, so a LOOP token in a parent directory is ignored.
func LoopFromName(path string) (float64, bool) {
	m := loopToken.FindString(filepath.Base(path))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(m, "LOOP"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ReadVars reads configuration variables from r, one key=value pair a line.
// Blank lines and lines starting with # are ignored.
func ReadVars(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	s := bufio.NewScanner(r)
	for n := 1; s.Scan(); n++ {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, errors.Wrapf(ErrBadVarLine, "line %d", n)
		}
		vars[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read config variables")
	}
	return vars, nil
}
