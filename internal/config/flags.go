package config

import (
	"github.com/spf13/pflag"
)

// Flags holds the command-line overrides. Only flags the user actually set
// are applied, so file and environment values survive unset flags.
type Flags struct {
	fs *pflag.FlagSet
	v  Config
}

func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, v: Default()}

	fs.BoolVar(&f.v.DarkMode, "dark", f.v.DarkMode, "Dark palette")
	fs.StringVar(&f.v.UserName, "user", f.v.UserName, "Name shown on your messages")
	fs.IntVar(&f.v.SampleRate, "rate", f.v.SampleRate, "Capture sample rate")
	fs.DurationVar(&f.v.MaxRecording, "max-recording", f.v.MaxRecording, "Stop recording automatically after this long")
	fs.DurationVar(&f.v.TranscribeTimeout, "transcribe-timeout", f.v.TranscribeTimeout, "Give up on transcription after this long")
	fs.DurationVar(&f.v.TranscribeDelay, "transcribe-delay", f.v.TranscribeDelay, "Simulated transcription latency")
	fs.StringVar(&f.v.BeepFile, "beep", f.v.BeepFile, "Start-of-recording cue (mp3)")
	fs.BoolVar(&f.v.Duck, "duck", f.v.Duck, "Lower other playback while recording")
	fs.StringVarP(&f.v.BusURL, "url", "u", f.v.BusURL, "Url of presentation hub")
	fs.StringVarP(&f.v.Proxy, "proxy", "p", f.v.Proxy, "Socks Proxy Address")
	fs.StringVarP(&f.v.Socket, "socket", "s", f.v.Socket, "Control socket path")

	return f
}

// Apply copies every flag that was set on the command line into cfg.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "dark":
			cfg.DarkMode = f.v.DarkMode
		case "user":
			cfg.UserName = f.v.UserName
		case "rate":
			cfg.SampleRate = f.v.SampleRate
		case "max-recording":
			cfg.MaxRecording = f.v.MaxRecording
		case "transcribe-timeout":
			cfg.TranscribeTimeout = f.v.TranscribeTimeout
		case "transcribe-delay":
			cfg.TranscribeDelay = f.v.TranscribeDelay
		case "beep":
			cfg.BeepFile = f.v.BeepFile
		case "duck":
			cfg.Duck = f.v.Duck
		case "url":
			cfg.BusURL = f.v.BusURL
		case "proxy":
			cfg.Proxy = f.v.Proxy
		case "socket":
			cfg.Socket = f.v.Socket
		}
	})
}
