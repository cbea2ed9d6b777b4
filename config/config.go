package config

import (
	"github.com/spf13/viper"
	"sync"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("xrp_wallet", "XRP_WALLET")
		viper.BindEnv("fl_api_key", "FL_API_KEY")
		viper.BindEnv("min_amount_group", "MIN_AMOUNT_GROUP")
		viper.BindEnv("min_amount_private", "MIN_AMOUNT_PRIVATE")
		viper.BindEnv("data_dir", "DATA_DIR")
		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("poll_interval_seconds", "POLL_INTERVAL_SECONDS")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("min_amount_group", 20.0)
		viper.SetDefault("min_amount_private", 10.0)
		viper.SetDefault("data_dir", "/app/data")
		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("poll_interval_seconds", 30)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetFloat64(key string) float64 {
	InitConfig()
	return viper.GetFloat64(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}
