package worker

type Config struct {
	NumWorkers int `mapstructure:"num_workers"`
	// DeadLetterTopic receives batches that could not be published or stored. Empty disables it.
	DeadLetterTopic string `mapstructure:"dead_letter_topic"`
}
