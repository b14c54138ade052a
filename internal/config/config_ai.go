package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// maxPromptFileSize bounds custom prompt files.
const maxPromptFileSize = 64 * 1024

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// GetExtractConfig returns the AI configuration for resume skill extraction
// with fallback to the global AI settings
func (c *Config) GetExtractConfig() OperationAIConfig {
	config := c.AI.Extract
	c.applyOperationDefaults(&config)
	return config
}

// loadPromptOverride replaces the inline extraction prompt with the content
// of systemPromptFile when one is configured
func (c *Config) loadPromptOverride() error {
	path := c.AI.Extract.SystemPromptFile
	if path == "" {
		if c.AI.Extract.SystemPrompt != "" {
			log.Println("[CONFIG] Using inline extraction system prompt")
		}
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("prompt file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("prompt file %s is a directory", path)
	}
	if info.Size() > maxPromptFileSize {
		return fmt.Errorf("prompt file %s is too large: %d bytes (max %d)", path, info.Size(), maxPromptFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}
	prompt := strings.TrimSpace(string(content))
	if prompt == "" {
		return fmt.Errorf("prompt file %s is empty", path)
	}

	c.AI.Extract.SystemPrompt = prompt
	log.Printf("[CONFIG] Loaded extraction system prompt from %s (%d bytes)", path, len(prompt))
	return nil
}
