// Package config loads and validates the plantpot daemon configuration.
//
// Configuration comes from a YAML file, then PLANTPOT_* environment variables
// override individual values. Secrets (MQTT password, InfluxDB token) belong in
// the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.ID)
package config
