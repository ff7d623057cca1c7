// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command hwnet elaborates a structural VHDL design against a Liberty gate
// library and writes the resulting netlist as JSON.
//
// Usage:
//
//	hwnet [flags] design.vhd
//
// Defaults are read from hwnet.json in the current directory, see package
// internal/config. Flags override the configuration file.
//
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/db47h/hwnet"
	"github.com/db47h/hwnet/elab"
	"github.com/db47h/hwnet/export"
	"github.com/db47h/hwnet/gatelib"
	"github.com/db47h/hwnet/internal/config"
	"github.com/db47h/hwnet/liberty"
	"github.com/db47h/hwnet/vhdl"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		cfgFile  = flag.String("config", "", "configuration `file`")
		lib      = flag.String("lib", "", "Liberty gate library `file`")
		top      = flag.String("top", "", "top level `entity`")
		out      = flag.String("o", "", "output `file`, - for stdout")
		verbose  = flag.Bool("v", false, "verbose output")
		noCheck  = flag.Bool("novalidate", false, "do not validate the JSON netlist")
		writeCfg = flag.Bool("init", false, "write the effective configuration to "+config.FileName+" and exit")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] design.vhd\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	cfg, err := loadConfig(*cfgFile)
	if err != nil {
		log.Fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lib":
			cfg.Library = *lib
		case "top":
			cfg.Top = *top
		case "o":
			cfg.Output = *out
		case "novalidate":
			v := !*noCheck
			cfg.Validate = &v
		case "v":
			if *verbose {
				cfg.LogLevel = logrus.DebugLevel.String()
			}
		}
	})
	level, err := cfg.Level()
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)

	if *writeCfg {
		if err = cfg.Save(config.FileName); err != nil {
			log.Fatal(err)
		}
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err = run(log, cfg, flag.Arg(0)); err != nil {
		// parse and elaboration errors are already logged
		log.Debugf("%+v", err)
		os.Exit(1)
	}
}

func loadConfig(file string) (*config.Config, error) {
	if file != "" {
		return config.LoadFile(file)
	}
	return config.Load(".")
}

func readLibrary(log logrus.FieldLogger, name string) (*gatelib.Library, error) {
	if name == "" {
		log.Warn("no gate library given, all instances must refer to entities")
		return gatelib.NewLibrary(""), nil
	}
	f, err := os.Open(name)
	if err != nil {
		log.Error(err)
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return (&liberty.Parser{Log: log.WithField("file", name)}).Parse(f)
}

func run(log *logrus.Logger, cfg *config.Config, src string) error {
	lib, err := readLibrary(log, cfg.Library)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		log.Error(err)
		return errors.WithStack(err)
	}
	defer f.Close()
	d, err := (&vhdl.Parser{Log: log.WithField("file", src)}).Parse(f)
	if err != nil {
		return err
	}
	nl, err := (&elab.Elaborator{Log: log.WithField("file", src)}).Elaborate(d, lib, cfg.Top)
	if err != nil {
		return err
	}
	report(log, nl)

	var buf bytes.Buffer
	if err = export.Write(&buf, nl); err != nil {
		log.Error(err)
		return err
	}
	if *cfg.Validate {
		v, err := export.NewValidator()
		if err == nil {
			err = v.ValidateJSON(buf.Bytes())
		}
		if err != nil {
			log.Error(err)
			return err
		}
	}
	if err = write(cfg.Output, &buf); err != nil {
		log.Error(err)
	}
	return err
}

func report(log logrus.FieldLogger, nl *hwnet.Netlist) {
	log.WithFields(logrus.Fields{
		"gates":   len(nl.Gates()),
		"nets":    len(nl.Nets()),
		"modules": len(nl.Modules()),
		"inputs":  len(nl.GlobalInputs()),
		"outputs": len(nl.GlobalOutputs()),
	}).Infof("netlist %s", nl.Name)
	for _, n := range nl.Nets() {
		if len(n.Sources) == 0 && !n.GlobalInput {
			log.Warnf("net %s has no driver", n.Name)
		}
		if len(n.Sources) > 1 {
			log.Warnf("net %s has %d drivers", n.Name, len(n.Sources))
		}
	}
}

func write(name string, r io.Reader) error {
	if name == "" || name == "-" {
		_, err := io.Copy(os.Stdout, r)
		return errors.WithStack(err)
	}
	f, err := os.Create(name)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(f.Close())
}
