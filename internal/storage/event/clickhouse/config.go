package clickhouse

type Config struct {
	Addr     string `mapstructure:"addr"`
	DB       string `mapstructure:"db"`
	Table    string `mapstructure:"table"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}
