// modelcheck verifies that the configured model is actually present on
// the inference server before a run, so a typo in -m fails here instead
// of mid-conversation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/harunnryd/tanya/pkg/configutil"
)

type llmConfig struct {
	LLM struct {
		Provider string         `mapstructure:"provider"`
		Settings map[string]any `mapstructure:"settings"`
	} `mapstructure:"llm"`
}

type ollamaSettings struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

func main() {
	configPath := flag.String("config", "", "")
	baseURL := flag.String("base_url", "", "")
	model := flag.String("model", "", "")
	flag.Parse()

	settings := ollamaSettings{}
	if *configPath != "" {
		cfg, err := loadLLMConfig(*configPath)
		if err != nil {
			fmt.Println("config error:", err)
			os.Exit(1)
		}
		if err := configutil.DecodeSettings(cfg.LLM.Settings, &settings); err != nil {
			fmt.Println("settings error:", err)
			os.Exit(1)
		}
	}
	if *baseURL != "" {
		settings.BaseURL = *baseURL
	}
	if *model != "" {
		settings.Model = *model
	}
	if settings.BaseURL == "" {
		settings.BaseURL = "http://localhost:11434"
	}
	if settings.Model == "" {
		settings.Model = "qwen2.5:7b"
	}

	names, err := listModels(strings.TrimRight(settings.BaseURL, "/"))
	if err != nil {
		fmt.Println("server error:", err)
		os.Exit(1)
	}
	for _, name := range names {
		if name == settings.Model {
			fmt.Println("ok:", settings.Model)
			return
		}
	}
	fmt.Println("missing:", settings.Model)
	fmt.Println("available:", strings.Join(names, ", "))
	os.Exit(1)
}

func loadLLMConfig(path string) (llmConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return llmConfig{}, err
	}
	var cfg llmConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return llmConfig{}, err
	}
	return cfg, nil
}

func listModels(baseURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	var names []string
	for _, m := range payload.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
