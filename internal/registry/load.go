package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/valgate/internal/validator"
)

// ErrSourceMissing is returned by LoadFile when the configuration file does not exist.
var ErrSourceMissing = errors.New("validators source not found")

// columnAliases maps every accepted header (lower-cased, trimmed) to the
// RawRow field it fills.
var columnAliases = map[string]string{
	"name":          "name",
	"rpc_url":       "rpc_url",
	"rpc_endpoint":  "rpc_url",
	"host":          "host",
	"ip":            "host",
	"address":       "host",
	"endpoint_host": "host",
	"rpc_port":      "port",
	"port":          "port",
	"endpoint_port": "port",
	"protocol":      "protocol",
	"location":      "location",
}

// LoadFile reads validators from path and builds a registry.
// Files ending in .yaml or .yml are read with ReadYAML, everything else as CSV.
func LoadFile(path string, opts ...Option) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrSourceMissing, path)
		}
		return nil, fmt.Errorf("open validators source: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadYAML(f, opts...)
	default:
		return ReadCSV(f, opts...)
	}
}

// ReadCSV builds a registry from CSV data with a header row.
//
// Headers and cells are trimmed. Recognized columns (aliases in brackets):
//
//	name, rpc_url [rpc_endpoint], host [ip, address, endpoint_host],
//	rpc_port [port, endpoint_port], protocol, location
//
// Unknown columns are ignored. When several aliases of the same column are
// present, the first non-empty cell wins. Data rows are numbered from 2 so
// errors point at the line a human sees in the file.
func ReadCSV(r io.Reader, opts ...Option) (*Registry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = columnAliases[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))]
	}

	var validators []validator.Validator
	for rowNumber := 2; ; rowNumber++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		var row validator.RawRow
		for i, cell := range record {
			assignField(&row, fields[i], strings.TrimSpace(cell))
		}

		v, err := validator.Build(row, rowNumber, len(validators)+1)
		if err != nil {
			return nil, err
		}
		validators = append(validators, v)
	}

	return New(validators, opts...)
}

func assignField(row *validator.RawRow, field, value string) {
	if value == "" {
		return
	}
	var dst *string
	switch field {
	case "name":
		dst = &row.Name
	case "rpc_url":
		dst = &row.RPCURL
	case "host":
		dst = &row.Host
	case "port":
		dst = &row.Port
	case "protocol":
		dst = &row.Protocol
	case "location":
		dst = &row.Location
	default:
		return
	}
	if *dst == "" {
		*dst = value
	}
}

// yamlRow accepts the same aliases as the CSV header.
type yamlRow struct {
	Name         string `yaml:"name"`
	RPCURL       string `yaml:"rpc_url"`
	RPCEndpoint  string `yaml:"rpc_endpoint"`
	Host         string `yaml:"host"`
	IP           string `yaml:"ip"`
	Address      string `yaml:"address"`
	RPCPort      string `yaml:"rpc_port"`
	Port         string `yaml:"port"`
	Protocol     string `yaml:"protocol"`
	Location     string `yaml:"location"`
	EndpointHost string `yaml:"endpoint_host"`
	EndpointPort string `yaml:"endpoint_port"`
}

func (y yamlRow) raw() validator.RawRow {
	return validator.RawRow{
		Name:     y.Name,
		RPCURL:   firstNonBlank(y.RPCURL, y.RPCEndpoint),
		Host:     firstNonBlank(y.Host, y.IP, y.Address, y.EndpointHost),
		Port:     firstNonBlank(y.RPCPort, y.Port, y.EndpointPort),
		Protocol: y.Protocol,
		Location: y.Location,
	}
}

// ReadYAML builds a registry from a document of the form:
//
//	validators:
//	  - name: frankfurt-1
//	    host: 10.0.0.7
//	    location: Frankfurt
//
// Items accept the same keys and aliases as the CSV columns and are numbered
// from 1 in error messages.
func ReadYAML(r io.Reader, opts ...Option) (*Registry, error) {
	var doc struct {
		Validators []yamlRow `yaml:"validators"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	validators := make([]validator.Validator, 0, len(doc.Validators))
	for i, item := range doc.Validators {
		v, err := validator.Build(item.raw(), i+1, len(validators)+1)
		if err != nil {
			return nil, err
		}
		validators = append(validators, v)
	}

	return New(validators, opts...)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
