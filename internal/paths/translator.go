package paths

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// DefaultMountPrefix is the Cygwin virtual directory that exposes Windows drives.
	DefaultMountPrefix = "cygdrive"

	posixSeparatorConstant             = "/"
	windowsSeparatorConstant           = `\`
	driveDesignatorSuffixConstant      = ':'
	driveComponentLengthConstant       = 2
	translationErrorTemplateConstant   = "unable to translate %s: %w"
	mountedDriveRootTemplateConstant   = "/%s/%s"
	mountedDriveNestedTemplateConstant = "/%s/%s/%s"
)

// AbsolutePathResolver converts a possibly relative native path into its canonical absolute form.
type AbsolutePathResolver func(path string) (string, error)

// Translator rewrites native paths into compatibility-shell paths.
type Translator struct {
	mountPrefix          string
	absolutePathResolver AbsolutePathResolver
}

// NewTranslator builds a Translator; empty arguments fall back to DefaultMountPrefix and filepath.Abs.
func NewTranslator(mountPrefix string, absolutePathResolver AbsolutePathResolver) *Translator {
	normalizedPrefix := strings.Trim(strings.TrimSpace(mountPrefix), posixSeparatorConstant+windowsSeparatorConstant)
	if len(normalizedPrefix) == 0 {
		normalizedPrefix = DefaultMountPrefix
	}
	if absolutePathResolver == nil {
		absolutePathResolver = filepath.Abs
	}
	return &Translator{mountPrefix: normalizedPrefix, absolutePathResolver: absolutePathResolver}
}

// Translate maps C:\Users\file.wav to /cygdrive/c/Users/file.wav. Paths without a
// drive letter only have their separators normalised, and already-mounted paths are
// returned unchanged.
func (translator *Translator) Translate(nativePath string) (string, error) {
	slashPath := strings.ReplaceAll(nativePath, windowsSeparatorConstant, posixSeparatorConstant)
	if translator.isMounted(slashPath) {
		return slashPath, nil
	}

	absolutePath, absoluteError := translator.absolutePathResolver(nativePath)
	if absoluteError != nil {
		return "", fmt.Errorf(translationErrorTemplateConstant, nativePath, absoluteError)
	}
	slashPath = strings.ReplaceAll(absolutePath, windowsSeparatorConstant, posixSeparatorConstant)

	components := strings.Split(slashPath, posixSeparatorConstant)
	if !isDriveComponent(components[0]) {
		return slashPath, nil
	}

	driveLetter := strings.ToLower(components[0][:1])
	remainingComponents := make([]string, 0, len(components)-1)
	for _, component := range components[1:] {
		if len(component) > 0 {
			remainingComponents = append(remainingComponents, component)
		}
	}
	if len(remainingComponents) == 0 {
		return fmt.Sprintf(mountedDriveRootTemplateConstant, translator.mountPrefix, driveLetter), nil
	}

	return fmt.Sprintf(mountedDriveNestedTemplateConstant, translator.mountPrefix, driveLetter, strings.Join(remainingComponents, posixSeparatorConstant)), nil
}

// MountPrefix reports the virtual directory drives are mounted under.
func (translator *Translator) MountPrefix() string {
	return translator.mountPrefix
}

func (translator *Translator) isMounted(slashPath string) bool {
	mountRoot := posixSeparatorConstant + translator.mountPrefix + posixSeparatorConstant
	if !strings.HasPrefix(slashPath, mountRoot) {
		return false
	}
	driveSegment := strings.SplitN(strings.TrimPrefix(slashPath, mountRoot), posixSeparatorConstant, 2)[0]
	return len(driveSegment) == 1 && unicode.IsLetter(rune(driveSegment[0]))
}

func isDriveComponent(component string) bool {
	if len(component) != driveComponentLengthConstant {
		return false
	}
	return component[1] == driveDesignatorSuffixConstant && unicode.IsLetter(rune(component[0]))
}
