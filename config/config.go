package config

import (
	"bufio"
	"io"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/ackio/ackd/lib/logger"
	"github.com/ackio/ackd/lib/utils"
)

// DefaultConfPath is read when no config file is given explicitly
const DefaultConfPath = "ackd.conf"

// Properties holds global config properties
var Properties *ServerProperties

// ServerProperties defines global config properties
type ServerProperties struct {
	Bind string `cfg:"bind"`
	Port int    `cfg:"port"`

	// Backlog is the advisory depth of the pending-connection queue.
	// The Go runtime sizes the real listen(2) backlog itself, the value
	// is kept for diagnostics.
	Backlog int `cfg:"backlog"`

	// MaxConnect bounds the number of outstanding workers, 0 means no bound.
	// A connection accepted above the bound is closed without a reply.
	MaxConnect int `cfg:"max-connect"`

	// ShutdownTimeout is the drain window in seconds granted to in-flight
	// workers after a stop request before their connections are forced shut.
	ShutdownTimeout int `cfg:"shutdown-timeout"`

	// Engine selects the transport: "tcp" (goroutine per connection) or
	// "gnet" (event loop).
	Engine string `cfg:"engine"`

	RunID  string `cfg:"run-id"`
	CfPath string `cfg:"cf,omitempty"`
}

func init() {
	// default config
	Properties = &ServerProperties{
		Bind:            "0.0.0.0",
		Port:            7979,
		Backlog:         5,
		MaxConnect:      1000,
		ShutdownTimeout: 10,
		Engine:          "tcp",
	}
}

func parse(src io.Reader) *ServerProperties {
	config := &ServerProperties{}

	// read config file
	rawMap := make(map[string]string)
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) > 0 && line[0] == '#' {
			continue
		}
		pivot := strings.IndexAny(line, " ")
		if pivot > 0 && pivot < len(line)-1 { // separator found
			key := line[0:pivot]
			value := strings.Trim(line[pivot+1:], " ")
			rawMap[strings.ToLower(key)] = value
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Fatal(err)
	}

	// parse format
	t := reflect.TypeOf(config)
	v := reflect.ValueOf(config)
	n := t.Elem().NumField()
	for i := 0; i < n; i++ {
		field := t.Elem().Field(i)
		fieldVal := v.Elem().Field(i)
		key, ok := field.Tag.Lookup("cfg")
		if !ok {
			key = field.Name
		}
		key = strings.Split(key, ",")[0]
		value, ok := rawMap[strings.ToLower(key)]
		if ok {
			// fill config
			switch field.Type.Kind() {
			case reflect.String:
				fieldVal.SetString(value)
			case reflect.Int:
				intValue, err := strconv.ParseInt(value, 10, 64)
				if err == nil {
					fieldVal.SetInt(intValue)
				}
			case reflect.Bool:
				fieldVal.SetBool(toBool(value))
			case reflect.Slice:
				if field.Type.Elem().Kind() == reflect.String {
					slice := strings.Split(value, ",")
					fieldVal.Set(reflect.ValueOf(slice))
				}
			}
		}
	}
	return config
}

// SetupConfig read config file and store properties into Properties
func SetupConfig(configFilename string) {
	if configFilename == "" {
		if defaultConfigFileExists() {
			configFilename = DefaultConfPath
		} else {
			fillDefaults(Properties)
			return
		}
	}
	file, err := os.Open(configFilename)
	if err != nil {
		panic(err)
	}
	defer file.Close()
	Properties = parse(file)
	fillDefaults(Properties)
}

// fillDefaults completes fields the file left unset
func fillDefaults(p *ServerProperties) {
	if p.Bind == "" {
		p.Bind = "0.0.0.0"
	}
	if p.Port <= 0 {
		p.Port = 7979
	}
	if p.Backlog <= 0 {
		p.Backlog = 5
	}
	if p.MaxConnect < 0 {
		p.MaxConnect = 0
	}
	if int64(p.MaxConnect) > math.MaxInt32 {
		p.MaxConnect = math.MaxInt32
	}
	if p.ShutdownTimeout <= 0 {
		p.ShutdownTimeout = 10
	}
	if p.Engine == "" {
		p.Engine = "tcp"
	}
	if p.RunID == "" {
		p.RunID = utils.RandString(40)
	}
}

func defaultConfigFileExists() bool {
	info, err := os.Stat(DefaultConfPath)
	return err == nil && !info.IsDir()
}

func toBool(s string) bool {
	ls := strings.ToLower(s)
	switch ls {
	case "true", "yes", "t", "y":
		return true
	default:
		return false
	}
}
