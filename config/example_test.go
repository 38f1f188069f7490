/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path"

	"code.cloudfoundry.org/bytefmt"
)

const (
	cfgKeyAPIBaseURL                = "api.baseUrl"
	cfgKeyLogLevel                  = "log.level"
	cfgKeyLogFilePath               = "log.file.path"
	cfgKeyLogFileRotationCompress   = "log.file.rotation.compress"
	cfgKeyLogFileRotationMaxSize    = "log.file.rotation.maxsize"
	cfgKeyLogFileRotationMaxBackups = "log.file.rotation.maxbackups"
)

type apiConfig struct {
	BaseURL string
}

func (c *apiConfig) UpdateProviderValues(dp DataProvider) {
	dp.Set(cfgKeyAPIBaseURL, c.BaseURL)
}

func (c *apiConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault(cfgKeyAPIBaseURL, "https://api.example.com/v1")
}

func (c *apiConfig) Set(dp DataProvider) error {
	var err error
	if c.BaseURL, err = dp.GetString(cfgKeyAPIBaseURL); err != nil {
		return err
	}
	return nil
}

type logConfig struct {
	Level string
	File  struct {
		Path     string
		Rotation struct {
			MaxSize    BytesCount
			MaxBackups int
			Compress   bool
		}
	}
}

func (c *logConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault(cfgKeyLogLevel, "info")
	dp.SetDefault(cfgKeyLogFileRotationCompress, false)
	dp.SetDefault(cfgKeyLogFileRotationMaxSize, bytefmt.ByteSize(100*1024*1024))
	dp.SetDefault(cfgKeyLogFileRotationMaxBackups, 10)
}

func (c *logConfig) Set(dp DataProvider) error {
	var err error

	if c.Level, err = dp.GetStringFromSet(cfgKeyLogLevel, []string{"debug", "info", "warn", "error"}, true); err != nil {
		return err
	}

	if c.File.Path, err = dp.GetString(cfgKeyLogFilePath); err != nil {
		return err
	}
	if c.File.Path == "" {
		return WrapKeyErr(cfgKeyLogFilePath, fmt.Errorf("must not be empty"))
	}

	if c.File.Rotation.MaxSize, err = dp.GetBytesCount(cfgKeyLogFileRotationMaxSize); err != nil {
		return err
	}
	if c.File.Rotation.MaxBackups, err = dp.GetInt(cfgKeyLogFileRotationMaxBackups); err != nil {
		return err
	}
	if c.File.Rotation.Compress, err = dp.GetBool(cfgKeyLogFileRotationCompress); err != nil {
		return err
	}

	return nil
}

func Example() {
	const envVarsPrefix = "hydra"

	cfgData := bytes.NewBuffer([]byte(`
log:
  level: info
  file:
    path: hydra.log
    rotation:
      maxsize: 100M
      maxbackups: 10
      compress: false
`))

	// Override some configuration values using environment variables.
	if err := os.Setenv("HYDRA_LOG_FILE_ROTATION_COMPRESS", "true"); err != nil {
		log.Fatal(err)
	}
	if err := os.Setenv("HYDRA_LOG_LEVEL", "debug"); err != nil {
		log.Fatal(err)
	}

	apiCfg := apiConfig{}
	logCfg := logConfig{}

	// Load configuration values and set them in apiCfg and logCfg.
	cfgLoader := NewDefaultLoader(envVarsPrefix)
	err := cfgLoader.LoadFromReader(cfgData, DataTypeYAML, &apiCfg, &logCfg) // Use cfgLoader.LoadFromFile() to read from file.
	if err != nil {
		log.Fatal(err)
	}

	// Save a modified config's copy into a file
	fname := path.Join(os.TempDir(), "data.yaml")
	configToModify := apiCfg
	configToModify.BaseURL = "https://api.staging.example.com/v1"
	dp := cfgLoader.DataProvider
	UpdateDataProvider(dp, &configToModify)
	err = dp.SaveToFile(fname, DataTypeYAML)
	if err != nil {
		log.Fatal(err)
	}

	// Load config from file
	configFromFile := apiConfig{}
	modifiedConfigLoader := NewDefaultLoader(envVarsPrefix)
	err = modifiedConfigLoader.LoadFromFile(fname, DataTypeYAML, &configFromFile)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(apiCfg.BaseURL)
	fmt.Printf("%q, %q, %d, %d, %v\n", logCfg.Level, logCfg.File.Path, logCfg.File.Rotation.MaxSize,
		logCfg.File.Rotation.MaxBackups, logCfg.File.Rotation.Compress)
	fmt.Println(configFromFile.BaseURL)

	// Output:
	// https://api.example.com/v1
	// "debug", "hydra.log", 104857600, 10, true
	// https://api.staging.example.com/v1
}
