package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/dyluth/fill/internal/config"
	"github.com/dyluth/fill/internal/publish"
	"github.com/dyluth/fill/internal/printer"
	"github.com/dyluth/fill/pkg/fill"
)

var lookupEnv = os.LookupEnv

// configError prints a configuration problem with a hint for the setting
// that caused it.
func configError(err error) error {
	var fe *fill.Error
	field := ""
	if errors.As(err, &fe) {
		field = fe.Field
	}

	suggestions := []string{fmt.Sprintf("Set %s in %s", field, configPath)}
	switch field {
	case "api_token":
		suggestions = []string{fmt.Sprintf("Export the service token:\n  export %s=<token>", config.EnvAPIToken)}
	case "api_url":
		suggestions = []string{
			fmt.Sprintf("Set api_url in %s", configPath),
			fmt.Sprintf("Export the service URL:\n  export %s=<url>", config.EnvAPIURL),
			"Pass it on the command line:\n  fill --api-url <url> ...",
		}
	case "build.id":
		suggestions = []string{
			fmt.Sprintf("Set build.id in %s", configPath),
			fmt.Sprintf("Export the build number:\n  export %s=<n>", config.EnvBuildNumber),
			"Pass it on the command line:\n  fill publish --build <n>",
		}
	case "":
		suggestions = nil
	}

	return printer.Error("invalid configuration", fmt.Sprintf("Error: %v", err), suggestions)
}

// publishError prints a failed attempt, naming the phase it stopped in.
func publishError(err error) error {
	var pe *publish.PhaseError
	if !errors.As(err, &pe) {
		if fill.IsKind(err, fill.KindConfigurationInvalid) {
			return configError(err)
		}
		return printer.Error("publish failed", fmt.Sprintf("Error: %v", err), nil)
	}

	context := map[string]string{"Phase": string(pe.Phase)}
	var fe *fill.Error
	if errors.As(err, &fe) {
		context["Kind"] = string(fe.Kind)
		if fe.Path != "" {
			context["File"] = fe.Path
		}
		if fe.StatusCode != 0 {
			context["Status"] = fmt.Sprintf("HTTP %d", fe.StatusCode)
		}
	}

	var suggestions []string
	switch fill.KindOf(err) {
	case fill.KindRemoteUnavailable:
		suggestions = []string{"Check the service is reachable:\n  fill history"}
	case fill.KindCommitResolutionFailed:
		suggestions = []string{
			"Fetch the full history of the checkout:\n  git fetch --unshallow",
			"Preview the commit boundary:\n  fill commits",
		}
	case fill.KindArtifactReadFailed:
		suggestions = []string{"Build the artifacts before publishing"}
	case fill.KindUploadFailed:
		suggestions = []string{"Nothing was published. Re-run once the service accepts uploads"}
	case fill.KindPublishFailed:
		suggestions = []string{"Artifacts were uploaded but no build was recorded. Re-run to publish with a new attempt id"}
	}

	return printer.ErrorWithContext(
		fmt.Sprintf("publish failed while %s", pe.Phase),
		fmt.Sprintf("Error: %v", pe.Err),
		context,
		suggestions,
	)
}
