package main

import (
	"time"

	"github.com/troikatech/taxi-voicebot/pkg/env"
	"github.com/troikatech/taxi-voicebot/pkg/extract"
	"github.com/troikatech/taxi-voicebot/pkg/logger"
	"github.com/troikatech/taxi-voicebot/pkg/speech"
)

func speechWhisper(cfg *env.Config, timeout time.Duration) *speech.WhisperClient {
	return speech.NewWhisperClient(
		cfg.OpenAIApiKey,
		cfg.WhisperModel,
		cfg.WhisperLanguage,
		timeout,
		logger.Log,
	)
}

func speechDeepgram(cfg *env.Config, timeout time.Duration) *speech.DeepgramClient {
	return speech.NewDeepgramClient(
		cfg.DeepgramApiKey,
		cfg.DeepgramModel,
		timeout,
		logger.Log,
	)
}

func newSynthesizer(cfg *env.Config, timeout time.Duration) *speech.TTSClient {
	return speech.NewTTSClient(
		cfg.OpenAIApiKey,
		cfg.TTSModel,
		cfg.SampleRate,
		timeout,
		logger.Log,
	)
}

func newExtractor(cfg *env.Config) *extract.OpenAIExtractor {
	return extract.NewOpenAIExtractor(
		cfg.OpenAIApiKey,
		cfg.ExtractModel,
		cfg.ExtractMaxTokens,
		time.Duration(cfg.ExtractTimeoutMs)*time.Millisecond,
		logger.Log,
	)
}
