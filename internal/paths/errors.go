package paths

import (
	"fmt"
	"strings"
)

const (
	configErrorTemplateConstant             = "%s: %s"
	configErrorWithCauseTemplateConstant    = "%s: %s: %v"
	toolNotFoundErrorTemplateConstant       = "could not find %s"
	toolNotFoundRemediationTemplateConstant = "%s\n%s"
	toolNotFoundSearchedTemplateConstant    = "%s (searched: %s)"
	toolNotFoundSearchedSeparatorConstant   = ", "
)

// ConfigError reports an invalid directory layout detected before any processing begins.
type ConfigError struct {
	Reason string
	Path   string
	Cause  error
}

// Error describes the invalid path.
func (configError *ConfigError) Error() string {
	if configError.Cause != nil {
		return fmt.Sprintf(configErrorWithCauseTemplateConstant, configError.Reason, configError.Path, configError.Cause)
	}
	return fmt.Sprintf(configErrorTemplateConstant, configError.Reason, configError.Path)
}

// Unwrap exposes the underlying cause.
func (configError *ConfigError) Unwrap() error {
	return configError.Cause
}

// ToolNotFoundError reports that a required external executable could not be located.
type ToolNotFoundError struct {
	Tool        string
	Searched    []string
	Remediation string
}

// Error describes the missing tool, the searched locations, and how to fix the installation.
func (notFoundError *ToolNotFoundError) Error() string {
	message := fmt.Sprintf(toolNotFoundErrorTemplateConstant, notFoundError.Tool)
	if len(notFoundError.Searched) > 0 {
		message = fmt.Sprintf(toolNotFoundSearchedTemplateConstant, message, strings.Join(notFoundError.Searched, toolNotFoundSearchedSeparatorConstant))
	}
	if len(notFoundError.Remediation) == 0 {
		return message
	}
	return fmt.Sprintf(toolNotFoundRemediationTemplateConstant, message, notFoundError.Remediation)
}
