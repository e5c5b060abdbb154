package matching

import (
	"strings"

	"resume-match-go/internal/types"
)

// NormalizeProfile 将技能抽取结果归一化为可比较的画像：
// 所有列表字段缺失时补成空列表，标量可选字段保持原样。
// 返回归一化后的副本，输入不会被修改。
func NormalizeProfile(p *types.SkillProfile) types.SkillProfile {
	if p == nil {
		p = &types.SkillProfile{}
	}
	out := *p
	out.TechnicalSkills = ensureList(p.TechnicalSkills)
	out.Frameworks = ensureList(p.Frameworks)
	out.Languages = ensureList(p.Languages)
	out.Tools = ensureList(p.Tools)
	out.SoftSkills = ensureList(p.SoftSkills)
	out.Education = ensureList(p.Education)
	out.Certifications = ensureList(p.Certifications)
	return out
}

func ensureList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// CombinedSkillList 返回画像的合并技能列表：技术技能 + 框架 + 工具，
// 保持原始顺序与原始大小写，且不去重（岗位侧列两次"Python"就产生两次对账结果）。
// 软技能和语言不参与匹配：它们描述候选人本身，而不是岗位要求。
func CombinedSkillList(p *types.SkillProfile) []string {
	if p == nil {
		return []string{}
	}
	combined := make([]string, 0, len(p.TechnicalSkills)+len(p.Frameworks)+len(p.Tools))
	combined = append(combined, p.TechnicalSkills...)
	combined = append(combined, p.Frameworks...)
	combined = append(combined, p.Tools...)
	return combined
}

// CombinedSkillSet 返回合并技能的小写集合，用于大小写不敏感的成员判断。
func CombinedSkillSet(p *types.SkillProfile) map[string]struct{} {
	list := CombinedSkillList(p)
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[strings.ToLower(s)] = struct{}{}
	}
	return set
}
