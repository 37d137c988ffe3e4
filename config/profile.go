package config

import (
	"os"

	"github.com/google/shlex"
	"gopkg.in/yaml.v2"
)

// profile is the on-disk YAML shape a -profile=file.yaml flag loads Options
// defaults from, before command-line flags are applied on top.
type profile struct {
	Opt       string `yaml:"opt"`
	SMP       int    `yaml:"smp"`
	Target    string `yaml:"target"`
	KernelELF string `yaml:"kernel"`
	OutputBin string `yaml:"output"`
	OutputHex string `yaml:"hex"`
	Monitor   string `yaml:"monitor"`
	BaudRate  int    `yaml:"baud"`
	GDB       bool   `yaml:"gdb"`
	QEMUArgs  string `yaml:"qemu_args"`
}

// LoadProfile reads a YAML profile file and returns the Options it
// describes, with QEMUArgsRaw tokenized into ExtraQEMUArgs the same way a
// -qemu-args command-line flag would be.
func LoadProfile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}
	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Options{}, err
	}
	opts := Options{
		Opt:         p.Opt,
		SMP:         p.SMP,
		Target:      p.Target,
		KernelELF:   p.KernelELF,
		OutputBin:   p.OutputBin,
		OutputHex:   p.OutputHex,
		Monitor:     p.Monitor,
		BaudRate:    p.BaudRate,
		GDB:         p.GDB,
		QEMUArgsRaw: p.QEMUArgs,
	}
	if err := opts.ParseQEMUArgs(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// ParseQEMUArgs tokenizes QEMUArgsRaw shell-style (so a quoted argument
// with spaces survives) into ExtraQEMUArgs.
func (o *Options) ParseQEMUArgs() error {
	if o.QEMUArgsRaw == "" {
		return nil
	}
	args, err := shlex.Split(o.QEMUArgsRaw)
	if err != nil {
		return err
	}
	o.ExtraQEMUArgs = args
	return nil
}
