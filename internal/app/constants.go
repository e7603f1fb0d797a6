package app

const (
	Name           = "oystergo"
	SourceURL      = "https://git.skobk.in/skobkin/oystergo"
	ConfigFilename = "config.json"
	LogFilename    = "oysterd.log"
	DefaultIPPort  = 4404
)
