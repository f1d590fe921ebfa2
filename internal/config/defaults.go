package config

const (
	defaultMediaRoot     = "~/notes"
	defaultNotesDir      = "~/notes"
	defaultScratchDir    = "~/.cache/notereel/runs"
	defaultOutputDir     = "~/Videos/notereel"
	defaultHistoryDB     = "~/.local/share/notereel/history.db"
	defaultLayout        = "bottom"
	defaultBackground    = "black"
	defaultBitrate       = "5M"
	defaultPreset        = "slow"
	defaultAudioFormat   = "mp3"
	defaultFailurePolicy = "skip"
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"
	defaultServerBind    = "127.0.0.1:7788"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaRoot:  defaultMediaRoot,
			NotesDir:   defaultNotesDir,
			ScratchDir: defaultScratchDir,
			OutputDir:  defaultOutputDir,
			HistoryDB:  defaultHistoryDB,
		},
		Render: Render{
			Layout:     defaultLayout,
			Background: defaultBackground,
			Bitrate:    defaultBitrate,
			Preset:     defaultPreset,
			FFmpeg:     "ffmpeg",
			FFprobe:    "ffprobe",
		},
		Audio: Audio{
			YTDLP:  "yt-dlp",
			Format: defaultAudioFormat,
		},
		Pipeline: Pipeline{
			CleanupIntermediates: true,
			FailurePolicy:        defaultFailurePolicy,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
	}
}
