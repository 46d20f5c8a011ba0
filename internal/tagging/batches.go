// Package tagging handles LLM-assisted L1/L2 classification of consumption
// records: it generates batch prompt files, calls Gemini, and applies the
// validated results back onto the ledger.
package tagging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/taxonomy"
)

// DefaultBatchSize is how many transactions go into one prompt. Larger
// batches save round trips but degrade per-row accuracy.
const DefaultBatchSize = 20

const systemPrompt = `你是财务分类专家。请为以下支付交易打上 L1 一级分类和 L2 二级分类。
必须从以下固定清单中选择分类：

%s

每条记录格式: [序号]. [平台] [交易对方] | [商品/服务描述] | [金额]

请返回一个 JSON 数组，格式:
[{"index": 1, "l1": "餐饮美食", "l2": "外卖配送"}, ...]

注意：
- 如果平台原始分类有误（例如停车费被标为"数码电器"），请根据商户名和描述纠正
- 对于模糊的记录，根据商户名推断最可能的分类
- L2 必须属于对应 L1 下的子分类`

// Batch describes one generated prompt file. Keys are record keys in
// prompt order, so result index N maps to Keys[N-1] regardless of how the
// ledger is sorted on a later run.
type Batch struct {
	File  string   `json:"file"`
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// ManifestName is the batch index file written next to the prompts.
const ManifestName = "manifest.json"

// NeedsTagging reports whether a record should go to the model: on the
// consumption track, not excluded, and still missing its L2 label.
func NeedsTagging(r *ledger.Record) bool {
	return r.Track == ledger.TrackConsumption && !r.IsIgnored && r.CategoryL2 == ""
}

// GenerateBatches writes batch prompt files plus a manifest for every
// consumption record still missing an L2 tag. It returns the batches in
// file order; an empty slice means nothing needs tagging.
func GenerateBatches(l *ledger.Ledger, outputDir string, batchSize int) ([]Batch, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var pending []*ledger.Record
	for _, r := range l.Records() {
		if NeedsTagging(r) {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("GenerateBatches: %w", err)
	}

	header := fmt.Sprintf(systemPrompt, taxonomy.PromptBlock())

	var batches []Batch
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		var sb strings.Builder
		sb.WriteString(header)
		sb.WriteString("\n\n")
		keys := make([]string, 0, len(chunk))
		for i, r := range chunk {
			counterparty := r.Counterparty
			if counterparty == "" {
				counterparty = "未知"
			}
			desc := r.Description
			if desc == "" {
				desc = "无描述"
			}
			hint := ""
			if r.PlatformCategory != "" {
				hint = fmt.Sprintf(" (平台原标签: %s)", r.PlatformCategory)
			}
			fmt.Fprintf(&sb, "%d. [%s] %s | %s | ¥%s%s\n",
				i+1, r.Platform, counterparty, desc, r.Amount.StringFixed(2), hint)
			keys = append(keys, r.Key().String())
		}

		file := filepath.Join(outputDir, fmt.Sprintf("batch_%03d.txt", len(batches)))
		if err := os.WriteFile(file, []byte(sb.String()), 0o644); err != nil {
			return nil, fmt.Errorf("GenerateBatches: %w", err)
		}
		batches = append(batches, Batch{File: file, Keys: keys, Count: len(chunk)})
	}

	data, err := json.MarshalIndent(batches, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("GenerateBatches: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, ManifestName), data, 0o644); err != nil {
		return nil, fmt.Errorf("GenerateBatches: %w", err)
	}
	return batches, nil
}

// LoadManifest reads the batch manifest from a tagging output directory.
func LoadManifest(dir string) ([]Batch, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("LoadManifest: %w", err)
	}
	var batches []Batch
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, fmt.Errorf("LoadManifest: %w", err)
	}
	return batches, nil
}

// ResultFile returns the path a batch's model output is stored at.
func (b Batch) ResultFile() string {
	return strings.TrimSuffix(b.File, ".txt") + "_result.json"
}
