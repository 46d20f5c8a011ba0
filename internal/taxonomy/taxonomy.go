// Package taxonomy holds the fixed two-level category tree and the
// rule-based L1 mapping applied before LLM tagging. The tree was derived
// from real Alipay statement data; Alipay's native categories line up with
// the L1 names, which is what makes the direct mapping possible.
package taxonomy

import (
	"strings"

	"github.com/parkozhao/spendscope/internal/ledger"
)

// Category is one L1 node with its L2 children.
type Category struct {
	L1  string
	L2s []string
}

// Categories is the canonical tree, in stable prompt order.
var Categories = []Category{
	{"餐饮美食", []string{"外卖配送", "堂食正餐", "快餐简餐", "咖啡饮品", "自动售货/零食", "生鲜超市", "烘焙甜点"}},
	{"交通出行", []string{"高速/ETC", "网约车/打车", "公共交通", "租车", "机票火车票", "共享单车"}},
	{"爱车养车", []string{"停车费", "新能源充电", "加油", "购车/车辆订单", "车险", "维修保养", "洗车"}},
	{"住房物业", []string{"房租", "物业费", "水电燃气"}},
	{"日用百货", []string{"线上日杂", "线下超市/便利店", "日化清洁", "鲜花绿植"}},
	{"服饰装扮", []string{"鞋靴", "服装", "箱包配饰"}},
	{"数码电器", []string{"手机/电子产品", "电脑办公", "智能家居"}},
	{"充值缴费", []string{"话费流量", "会员订阅", "水电燃气缴费"}},
	{"文化休闲", []string{"电影演出", "会员/知识付费", "书籍", "按摩/休闲", "文创/玩具", "运动健身"}},
	{"医疗健康", []string{"药品", "就医/体检", "保健品/器械"}},
	{"商业服务", []string{"ETC办理", "快递寄件", "以旧换新", "打印/办证"}},
	{"生活服务", []string{"快递", "打印", "家政"}},
	{"酒店旅游", []string{"酒店住宿", "景区门票", "护照签证", "旅行保险", "旅行团费/套餐", "导游/游玩项目", "旅游杂费", "机票火车票", "租车"}},
	{"美容美发", []string{"美发", "美容护肤", "美妆个护"}},
	{"母婴亲子", []string{"玩具", "母婴用品"}},
	{"家居家装", []string{"家具", "五金建材"}},
	{"保险", []string{"人寿保险", "财产保险"}},
	{"公共服务", []string{"政府缴费", "公共设施"}},
	{"其他", []string{"未分类"}},
}

var l2Index = buildIndex()

func buildIndex() map[string]map[string]bool {
	idx := make(map[string]map[string]bool, len(Categories))
	for _, c := range Categories {
		set := make(map[string]bool, len(c.L2s))
		for _, l2 := range c.L2s {
			set[l2] = true
		}
		idx[c.L1] = set
	}
	return idx
}

// IsL1 reports whether name is a valid L1 category.
func IsL1(name string) bool {
	_, ok := l2Index[name]
	return ok
}

// IsL2 reports whether l2 is a valid child of l1.
func IsL2(l1, l2 string) bool {
	set, ok := l2Index[l1]
	return ok && set[l2]
}

// FallbackL2 returns the first L2 under l1, used when a tagger picks a
// valid L1 but an L2 outside the tree.
func FallbackL2(l1 string) string {
	for _, c := range Categories {
		if c.L1 == l1 {
			return c.L2s[0]
		}
	}
	return ""
}

// PromptBlock renders the tree for LLM prompts, one "[L1: l2 / l2 / ...]"
// line per category, in stable order.
func PromptBlock() string {
	var b strings.Builder
	for i, c := range Categories {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("[")
		b.WriteString(c.L1)
		b.WriteString(": ")
		b.WriteString(strings.Join(c.L2s, " / "))
		b.WriteString("]")
	}
	return b.String()
}

// ApplyL1Mapping fills CategoryL1 on consumption records whose Alipay
// native category is itself a valid L1 name. Other platforms carry no
// usable native category and wait for the tagging stage.
func ApplyL1Mapping(l *ledger.Ledger) int {
	mapped := 0
	for _, r := range l.Records() {
		if r.Platform != ledger.PlatformAlipay || r.Track != ledger.TrackConsumption {
			continue
		}
		if r.CategoryL1 == "" && IsL1(r.PlatformCategory) {
			r.CategoryL1 = r.PlatformCategory
			mapped++
		}
	}
	return mapped
}
