package main

import (
	"os"
	"strconv"
	"strings"
)

type config struct {
	port                  string
	providerURL           string
	openaiAPIKey          string
	transcriptDBURL       string
	stunServers           []string
	sttPoolSize           int
	translatePoolSize     int
	ttsPoolSize           int
	maxConcurrentSessions int
	silenceThresholdDB    float64
	demoRoom              string
}

func loadConfig() config {
	port := envStr("GATEWAY_PORT", "8080")
	return config{
		port:                  port,
		providerURL:           envStr("PROVIDER_URL", "http://127.0.0.1:"+port),
		openaiAPIKey:          envStr("OPENAI_API_KEY", ""),
		transcriptDBURL:       envStr("TRANSCRIPT_DB_URL", ""),
		stunServers:           envList("STUN_SERVERS", "stun:stun.l.google.com:19302"),
		sttPoolSize:           envInt("STT_POOL_SIZE", 50),
		translatePoolSize:     envInt("TRANSLATE_POOL_SIZE", 50),
		ttsPoolSize:           envInt("TTS_POOL_SIZE", 50),
		maxConcurrentSessions: envInt("MAX_CONCURRENT_SESSIONS", 100),
		silenceThresholdDB:    envFloat("SILENCE_THRESHOLD_DB", -60),
		demoRoom:              envStr("DEMO_ROOM", ""),
	}
}

func envStr(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envList(key, fallback string) []string {
	val := os.Getenv(key)
	if val == "" {
		val = fallback
	}
	parts := strings.Split(val, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
