package postprocess

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
)

const defaultBatchSize = 1000

// writeShardedJSONLines reproduces original_source/JsonReaderWriter.cpp's
// write_sharded_json_files: delete any existing file under outputDir whose
// name starts with filenamePrefix, then write total/batchSize+1 shards (the
// last one empty when total is a multiple of batchSize) named "<prefix>NNNNN-of-MMMMM.json", each holding one compact JSON
// object per line prefixed by a "// @generated" marker line.
func writeShardedJSONLines(outputDir, filenamePrefix string, batchSize, total int, line func(i int) (interface{}, error)) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return fmt.Errorf("postprocess: reading output directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), filenamePrefix) {
			if err := os.Remove(filepath.Join(outputDir, entry.Name())); err != nil {
				return fmt.Errorf("postprocess: removing stale shard %s: %w", entry.Name(), err)
			}
		}
	}

	totalBatches := total/batchSize + 1
	paddedTotal := fmt.Sprintf("%05d", totalBatches)

	group := new(errgroup.Group)

	for batch := 0; batch < totalBatches; batch++ {
		batch := batch
		group.Go(func() error {
			batchPath := filepath.Join(outputDir, fmt.Sprintf("%s%05d-of-%s.json", filenamePrefix, batch, paddedTotal))
			file, err := os.Create(batchPath)
			if err != nil {
				return fmt.Errorf("postprocess: creating shard %s: %w", batchPath, err)
			}
			defer file.Close()

			if _, err := file.WriteString("// @generated\n"); err != nil {
				return err
			}

			encoder := json.NewEncoder(file)
			for i := batchSize * batch; i < batchSize*(batch+1) && i < total; i++ {
				value, err := line(i)
				if err != nil {
					return fmt.Errorf("postprocess: building shard %s line %d: %w", batchPath, i, err)
				}
				if err := encoder.Encode(value); err != nil {
					return fmt.Errorf("postprocess: encoding shard %s line %d: %w", batchPath, i, err)
				}
			}
			return nil
		})
	}

	return group.Wait()
}

// WriteShardedModels serializes every method's final Model in registry to
// "models@NNNNN-of-MMMMM.json" shards under outputDir, one method per line,
// in sorted method-name order for reproducible shard contents.
func WriteShardedModels(outputDir string, registry *model.Registry[string], batchSize int) error {
	methods := registry.Methods()
	sort.Strings(methods)
	return writeShardedJSONLines(outputDir, "models@", batchSize, len(methods), func(i int) (interface{}, error) {
		method := methods[i]
		return modelToJSON(method, registry.Get(method)), nil
	})
}

// WriteShardedIssues serializes issues to "issues@NNNNN-of-MMMMM.json"
// shards under outputDir, tagging each with a stable uuid derived from its
// (method, rule code, position) identity so repeated runs over an unchanged
// program keep the same issue id (mirrors securego/gosec's
// uuid.NewMD5(uuid.Nil, ...)-based deterministic finding ids).
func WriteShardedIssues(outputDir string, issues []Issue, batchSize int) error {
	return writeShardedJSONLines(outputDir, "issues@", batchSize, len(issues), func(i int) (interface{}, error) {
		issue := issues[i]
		id := uuid.NewMD5(uuid.Nil, []byte(fmt.Sprintf("%s:%d:%d", issue.Method, issue.RuleCode, issue.Position)))
		return IssueJSON{
			ID:       id.String(),
			Method:   issue.Method,
			RuleCode: issue.RuleCode,
			Position: issue.Position,
			Sources:  taintToJSON(issue.Source),
			Sinks:    taintToJSON(issue.Sink),
		}, nil
	})
}
