package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Capture   CaptureConfig
	Playback  PlaybackConfig
	FFmpeg    FFmpegConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	SessionsPerMin int
	MergesPerHour  int
}

// DeviceConfig describes one capture device made available to sessions.
type DeviceConfig struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Position string `mapstructure:"position"`
	Torch    bool   `mapstructure:"torch"`
}

type CaptureConfig struct {
	MaxRecordingSeconds float64
	TickIntervalMS      int
	TempDir             string
	Cameras             []DeviceConfig
	Microphones         []DeviceConfig
}

func (c CaptureConfig) MaxRecording() time.Duration {
	return time.Duration(c.MaxRecordingSeconds * float64(time.Second))
}

func (c CaptureConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

type PlaybackConfig struct {
	TickIntervalMS int
}

func (c PlaybackConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

type FFmpegConfig struct {
	BinPath     string
	ProbePath   string
	VideoFormat string
	AudioFormat string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.sessions_per_min", 30)
	viper.SetDefault("ratelimit.merges_per_hour", 20)
	viper.SetDefault("capture.max_recording_seconds", 20.0)
	viper.SetDefault("capture.tick_interval_ms", 10)
	viper.SetDefault("capture.temp_dir", "")
	viper.SetDefault("playback.tick_interval_ms", 100)
	viper.SetDefault("ffmpeg.bin_path", "ffmpeg")
	viper.SetDefault("ffmpeg.probe_path", "ffprobe")
	viper.SetDefault("ffmpeg.video_format", "v4l2")
	viper.SetDefault("ffmpeg.audio_format", "alsa")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			SessionsPerMin: viper.GetInt("ratelimit.sessions_per_min"),
			MergesPerHour:  viper.GetInt("ratelimit.merges_per_hour"),
		},
		Capture: CaptureConfig{
			MaxRecordingSeconds: viper.GetFloat64("capture.max_recording_seconds"),
			TickIntervalMS:      viper.GetInt("capture.tick_interval_ms"),
			TempDir:             viper.GetString("capture.temp_dir"),
		},
		Playback: PlaybackConfig{
			TickIntervalMS: viper.GetInt("playback.tick_interval_ms"),
		},
		FFmpeg: FFmpegConfig{
			BinPath:     viper.GetString("ffmpeg.bin_path"),
			ProbePath:   viper.GetString("ffmpeg.probe_path"),
			VideoFormat: viper.GetString("ffmpeg.video_format"),
			AudioFormat: viper.GetString("ffmpeg.audio_format"),
		},
	}

	if err := viper.UnmarshalKey("capture.cameras", &cfg.Capture.Cameras); err != nil {
		return nil, err
	}
	if err := viper.UnmarshalKey("capture.microphones", &cfg.Capture.Microphones); err != nil {
		return nil, err
	}

	// A bare deployment still gets one camera and one microphone so the
	// capture surface works out of the box.
	if len(cfg.Capture.Cameras) == 0 {
		cfg.Capture.Cameras = []DeviceConfig{{ID: "/dev/video0", Name: "default", Position: "rear"}}
	}
	if len(cfg.Capture.Microphones) == 0 {
		cfg.Capture.Microphones = []DeviceConfig{{ID: "default", Name: "default"}}
	}

	return cfg, nil
}
