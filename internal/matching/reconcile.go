package matching

import (
	"strings"

	"resume-match-go/internal/types"
)

// ReconcileSkills 对账简历与岗位的技能集合，产出 matched/partial/missing 三分结果。
// 纯函数：相同输入总是产出相同的SkillGap（包括列表顺序），不会失败。
//
// 规则（按优先级）：
//  1. 岗位技能的小写形式在简历合并技能集合中 → matched（精确匹配优先级最高）；
//  2. 任一简历技能与岗位技能互为子串（如 "React" 与 "React.js"）→ partial；
//  3. 其余 → missing。
//
// 岗位技能按原始顺序逐项处理且不去重，每项恰好落入一个桶。
func ReconcileSkills(resume, job *types.SkillProfile) types.SkillGap {
	resumeSet := CombinedSkillSet(resume)
	resumeSkills := make([]string, 0, len(resumeSet))
	for s := range resumeSet {
		resumeSkills = append(resumeSkills, s)
	}

	gap := types.SkillGap{
		Matched: []string{},
		Partial: []string{},
		Missing: []string{},
	}

	for _, skill := range CombinedSkillList(job) {
		lowered := strings.ToLower(skill)

		if _, ok := resumeSet[lowered]; ok {
			gap.Matched = append(gap.Matched, skill)
			continue
		}

		if hasPartialMatch(resumeSkills, lowered) {
			gap.Partial = append(gap.Partial, skill)
			continue
		}

		gap.Missing = append(gap.Missing, skill)
	}

	return gap
}

// hasPartialMatch 判断岗位技能与任一简历技能是否存在双向子串包含关系。
// 包含关系是字面的、不限长度的，单字符技能也按此规则处理。
func hasPartialMatch(resumeSkills []string, jobSkill string) bool {
	for _, r := range resumeSkills {
		if strings.Contains(jobSkill, r) || strings.Contains(r, jobSkill) {
			return true
		}
	}
	return false
}
