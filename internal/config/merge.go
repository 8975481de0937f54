package config

import "fmt"

// Merge combines two settings layers where overlay takes precedence:
//   - scalar fields: overlay wins when set
//   - outputs: merged by name, an overlay entry replaces the base entry
func Merge(base, overlay *Settings) *Settings {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	result := *base
	if overlay.Concurrency != 0 {
		result.Concurrency = overlay.Concurrency
	}
	if overlay.Timeout != 0 {
		result.Timeout = overlay.Timeout
	}
	if overlay.Retries != nil {
		result.Retries = overlay.Retries
	}
	if overlay.MaxFileSize != 0 {
		result.MaxFileSize = overlay.MaxFileSize
	}
	if overlay.RegistryURL != "" {
		result.RegistryURL = overlay.RegistryURL
	}
	if overlay.UserAgent != "" {
		result.UserAgent = overlay.UserAgent
	}
	if overlay.CacheDir != "" {
		result.CacheDir = overlay.CacheDir
	}
	if overlay.NoCache != nil {
		result.NoCache = overlay.NoCache
	}
	if overlay.FailFast != nil {
		result.FailFast = overlay.FailFast
	}
	result.Outputs = mergeOutputs(base.Outputs, overlay.Outputs)
	return &result
}

// MergeAll merges layers in order, lowest precedence first.
func MergeAll(layers []*Settings) (*Settings, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("no settings to merge")
	}
	result := layers[0]
	for _, l := range layers[1:] {
		result = Merge(result, l)
	}
	return result, nil
}

func mergeOutputs(base, overlay []Output) []Output {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}

	overlayNames := make(map[string]bool, len(overlay))
	for _, o := range overlay {
		overlayNames[o.Name] = true
	}

	var result []Output
	for _, o := range base {
		if !overlayNames[o.Name] {
			result = append(result, o)
		}
	}
	return append(result, overlay...)
}
