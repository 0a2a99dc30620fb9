package config

import (
	"os"
	"strconv"
	"time"
)

// Config 视频监测服务配置
type Config struct {
	HTTP struct {
		Addr string // 监听地址，如 ":5001"
	}

	// 监测循环配置
	Monitor struct {
		MediaRoot           string        // 视频文件根目录
		SampleEvery         int           // 每 N 帧取一帧分析，默认 60
		MinAnalysisInterval time.Duration // 两次分析之间的最小间隔，默认 3s
		FrameDelay          time.Duration // 帧间节拍延时（约 30 FPS），默认 33ms
		HistoryLimit        int           // 每个源保留的事件条数，默认 10
	}

	// 分类阈值
	Classifier struct {
		CardiacConfidence float64 // cardiac 模式置信度阈值，默认 0.7
		GeneralConfidence float64 // general 模式置信度阈值，默认 0.8
		FallFloorRatio    float64 // fall 模式画面底部比例阈值，默认 0.8
	}

	// YOLO 推理服务（外部黑盒）
	Detector struct {
		BaseURL string
		Timeout time.Duration
	}

	// Groq 推理分析配置
	Groq struct {
		APIKey      string
		BaseURL     string
		Model       string
		MaxTokens   int
		Temperature float64
		Timeout     time.Duration
	}

	// VAPI 语音报警配置
	Vapi struct {
		APIKey  string
		BaseURL string
		Timeout time.Duration
	}

	// Redis Streams 事件分发（可选）
	Redis struct {
		Enabled     bool
		Addr        string
		Password    string
		DB          int
		EventStream string
	}

	// MQTT 报警分发（可选）
	MQTT struct {
		Enabled    bool
		Broker     string
		ClientID   string
		Username   string
		Password   string
		AlertTopic string // 报警主题前缀，实际主题为 <prefix>/<source_id>
		QoS        byte
	}

	// 报警事件持久化（可选）
	Database struct {
		Enabled  bool
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":5001")

	cfg.Monitor.MediaRoot = getEnv("MEDIA_ROOT", "./videos")
	cfg.Monitor.SampleEvery = getEnvInt("SAMPLE_EVERY", 60)
	cfg.Monitor.MinAnalysisInterval = getEnvDuration("MIN_ANALYSIS_INTERVAL", 3*time.Second)
	cfg.Monitor.FrameDelay = getEnvDuration("FRAME_DELAY", 33*time.Millisecond)
	cfg.Monitor.HistoryLimit = getEnvInt("HISTORY_LIMIT", 10)

	cfg.Classifier.CardiacConfidence = getEnvFloat("CARDIAC_CONFIDENCE", 0.7)
	cfg.Classifier.GeneralConfidence = getEnvFloat("GENERAL_CONFIDENCE", 0.8)
	cfg.Classifier.FallFloorRatio = getEnvFloat("FALL_FLOOR_RATIO", 0.8)

	cfg.Detector.BaseURL = getEnv("DETECTOR_URL", "http://localhost:8500")
	cfg.Detector.Timeout = getEnvDuration("DETECTOR_TIMEOUT", 10*time.Second)

	cfg.Groq.APIKey = getEnv("GROQ_API_KEY", "")
	cfg.Groq.BaseURL = getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	cfg.Groq.Model = getEnv("GROQ_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct")
	cfg.Groq.MaxTokens = getEnvInt("GROQ_MAX_TOKENS", 500)
	cfg.Groq.Temperature = getEnvFloat("GROQ_TEMPERATURE", 0.7)
	cfg.Groq.Timeout = getEnvDuration("GROQ_TIMEOUT", 10*time.Second)

	cfg.Vapi.APIKey = getEnv("VAPI_API_KEY", "")
	cfg.Vapi.BaseURL = getEnv("VAPI_BASE_URL", "https://api.vapi.ai")
	cfg.Vapi.Timeout = getEnvDuration("VAPI_TIMEOUT", 10*time.Second)

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.EventStream = getEnv("REDIS_EVENT_STREAM", "vision:events")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-vision")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.AlertTopic = getEnv("MQTT_ALERT_TOPIC", "wisefido/vision/alerts")
	cfg.MQTT.QoS = 1

	cfg.Database.Enabled = getEnv("DB_ENABLED", "false") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
