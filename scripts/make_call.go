package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/svara-ai/svara/pkg/configutil"
	"github.com/svara-ai/svara/pkg/telephony/twilio"
)

type telephonyConfig struct {
	Telephony struct {
		Settings map[string]any `mapstructure:"settings"`
	} `mapstructure:"telephony"`
}

func main() {
	configPath := flag.String("config", "configs/svara.yaml", "")
	trunk := flag.String("trunk", "", "trunk PSTN number to ring")
	sendDigits := flag.String("send_digits", "", "")
	flag.Parse()
	if *trunk == "" {
		fmt.Println("usage: make_call -trunk=+15552223333 [-config=...] [-send_digits=W42#]")
		os.Exit(1)
	}
	cfg, err := loadTelephonyConfig(*configPath)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	var settings twilio.Config
	if err := configutil.DecodeSettings(cfg.Telephony.Settings, &settings); err != nil {
		fmt.Println("settings error:", err)
		os.Exit(1)
	}
	dialer := twilio.NewDialer(settings)
	callSID, err := dialer.DialWithOptions(context.Background(), *trunk, twilio.DialOptions{SendDigits: *sendDigits})
	if err != nil {
		fmt.Println("call error:", err)
		os.Exit(1)
	}
	fmt.Println("call_sid:", callSID)
}

func loadTelephonyConfig(path string) (telephonyConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return telephonyConfig{}, err
	}
	var cfg telephonyConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return telephonyConfig{}, err
	}
	for k, val := range cfg.Telephony.Settings {
		if s, ok := val.(string); ok {
			cfg.Telephony.Settings[k] = os.ExpandEnv(s)
		}
	}
	return cfg, nil
}
