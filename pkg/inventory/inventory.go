// Package inventory loads the list of devices to reconcile and their
// credentials.
//
// CSV files use the column names of the classic devices.txt layout:
//
//	DEVICETYPE,IP,USERNAME,PASSWORD
//	cisco_ios,10.0.0.11,netops,secret
//
// with optional NAME, PORT, TRANSPORT and CONFIG columns. YAML files hold a
// top-level "devices" list using the field names of Device.
package inventory

import (
	"encoding/csv"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/newtron-network/vlanshift/pkg/util"
)

// Transport names.
const (
	TransportSSH  = "ssh"
	TransportFile = "file"
)

// DefaultSSHPort is used when a device has no port.
const DefaultSSHPort = 22

// Device is one switch to reconcile.
type Device struct {
	Name       string `yaml:"name" json:"name,omitempty"`
	DeviceType string `yaml:"device_type" json:"device_type" validate:"required"`
	Host       string `yaml:"host" json:"host,omitempty" validate:"required_unless=Transport file"`
	Port       int    `yaml:"port" json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Username   string `yaml:"username" json:"username,omitempty" validate:"required_unless=Transport file"`
	Password   string `yaml:"password" json:"-"`
	Transport  string `yaml:"transport" json:"transport,omitempty" validate:"omitempty,oneof=ssh file"`

	// ConfigFile is the saved running configuration read by the file
	// transport.
	ConfigFile string `yaml:"config_file" json:"config_file,omitempty" validate:"required_if=Transport file"`
}

// Label returns the best available name for reports and logs.
func (d Device) Label() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.Host != "":
		return d.Host
	default:
		return d.ConfigFile
	}
}

// Address returns host:port for network transports.
func (d Device) Address() string {
	port := d.Port
	if port == 0 {
		port = DefaultSSHPort
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

// TransportName returns the transport, defaulting to ssh.
func (d Device) TransportName() string {
	if d.Transport == "" {
		return TransportSSH
	}
	return d.Transport
}

var validate = validator.New()

// Validate checks every device and reports all problems at once.
func Validate(devices []Device) error {
	var vb util.ValidationBuilder
	for i, d := range devices {
		if err := validate.Struct(d); err != nil {
			if fieldErrs, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range fieldErrs {
					vb.AddErrorf("device %d (%s): %s fails %q", i+1, d.Label(), fe.Field(), fe.Tag())
				}
				continue
			}
			vb.AddErrorf("device %d (%s): %v", i+1, d.Label(), err)
		}
	}
	return vb.Build()
}

// Load reads and validates the inventory at path.
func Load(path string) ([]Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	defer f.Close()

	var devices []Device
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		devices, err = ParseYAML(f)
	default:
		devices, err = ParseCSV(f)
	}
	if err != nil {
		return nil, err
	}

	// Relative config files are resolved against the inventory location.
	base := filepath.Dir(path)
	for i := range devices {
		if cf := devices[i].ConfigFile; cf != "" && !filepath.IsAbs(cf) {
			devices[i].ConfigFile = filepath.Join(base, cf)
		}
	}

	if err := Validate(devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// ParseCSV reads devices from CSV. DEVICETYPE is required in the header.
func ParseCSV(r io.Reader) ([]Device, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parsing inventory header: %w", err)
	}

	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["DEVICETYPE"]; !ok {
		return nil, fmt.Errorf("inventory header must contain DEVICETYPE, got %q: %w",
			strings.Join(header, ","), util.ErrInvalidConfig)
	}

	get := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var devices []Device
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing inventory: %w", err)
		}
		line, _ := cr.FieldPos(0)

		d := Device{
			Name:       get(record, "NAME"),
			DeviceType: get(record, "DEVICETYPE"),
			Host:       get(record, "IP"),
			Username:   get(record, "USERNAME"),
			Password:   get(record, "PASSWORD"),
			Transport:  strings.ToLower(get(record, "TRANSPORT")),
			ConfigFile: get(record, "CONFIG"),
		}
		if p := get(record, "PORT"); p != "" {
			port, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("inventory line %d: invalid port %q", line, p)
			}
			d.Port = port
		}
		devices = append(devices, d)
	}
	return devices, nil
}

type yamlFile struct {
	Devices []Device `yaml:"devices"`
}

// ParseYAML reads devices from a YAML document with a top-level "devices" list.
func ParseYAML(r io.Reader) ([]Device, error) {
	var doc yamlFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing inventory YAML: %w", err)
	}
	return doc.Devices, nil
}
