package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/reflexhq/reflex/internal/playbook"
)

// LoadMode controls how errors are handled during playbook loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading playbooks from a directory.
type LoadResult struct {
	Playbooks []playbook.Playbook
	Warnings  []string // non-fatal lint findings (dormant triggers)
	FileCount int      // Number of CUE files found
}

// LoadError represents an error that occurred during playbook loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for playbook loading and validation.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeDecodeFailed = "E007" // Playbook decode error
	ErrCodeInvalid      = "E101" // Structural validation failed
	ErrCodeStore        = "E201" // Database error
)

// LoadPlaybooks loads playbook definitions from a directory of CUE files.
//
// Each file contributes entries under the top-level "playbook" struct,
// keyed by playbook ID:
//
//	playbook: "focus-guard": {
//	    name: "Focus guard"
//	    triggers: [{type: "app_open", app_name: "Slack"}]
//	    actions:  [{type: "notify", title: "Heads up", message: "..."}]
//	}
//
// Values decode through their JSON form, so the same tagged-union encoding
// used on the wire and in storage applies here too. Structural validation
// runs on every decoded playbook; lint findings (a bad cron expression,
// say) are collected as warnings, not errors.
func LoadPlaybooks(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("playbooks directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing playbooks directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	playbooksVal := value.LookupPath(cue.ParsePath("playbook"))
	if !playbooksVal.Exists() {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no top-level playbook field found"})
		return result, errs
	}

	iter, iterErr := playbooksVal.Fields()
	if iterErr != nil {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating playbooks: %v", iterErr)})
		return result, errs
	}

	for iter.Next() {
		id := iter.Label()

		pb, decodeErr := decodePlaybook(id, iter.Value())
		if decodeErr != nil {
			errs = append(errs, decodeErr)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		if vErr := pb.Validate(); vErr != nil {
			errs = append(errs, &LoadError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("playbook %s: %v", id, vErr),
			})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		result.Warnings = append(result.Warnings, pb.Lint()...)
		result.Playbooks = append(result.Playbooks, pb)
	}

	return result, errs
}

// decodePlaybook converts one CUE value into a playbook definition.
// Decoding goes through JSON so the trigger and action union envelopes
// are handled by the playbook package, not by CUE struct decoding.
func decodePlaybook(id string, val cue.Value) (playbook.Playbook, error) {
	data, err := val.MarshalJSON()
	if err != nil {
		return playbook.Playbook{}, &LoadError{
			Code:    ErrCodeDecodeFailed,
			Message: fmt.Sprintf("playbook %s: %v", id, err),
			Pos:     val.Pos(),
		}
	}

	var pb playbook.Playbook
	if err := json.Unmarshal(data, &pb); err != nil {
		return playbook.Playbook{}, &LoadError{
			Code:    ErrCodeDecodeFailed,
			Message: fmt.Sprintf("playbook %s: %v", id, err),
			Pos:     val.Pos(),
		}
	}

	// The field label is the ID unless the body sets one explicitly.
	if pb.ID == "" {
		pb.ID = id
	}

	return pb, nil
}

// FindCUEFiles returns all .cue files directly under dir.
// Subdirectories are not descended into; CUE's own loader handles
// package resolution within the directory.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".cue") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}
