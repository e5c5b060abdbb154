package matching

import "math"

// CosineToPercentage 将余弦相似度分数（[-1,1]）线性映射为百分比并保留1位小数：
// 正交向量落在50%，完全同向落在100%，完全反向落在0%。
// 浮点误差可能使输入略微越界，最终百分比统一截断到 [0,100]。
func CosineToPercentage(cosineScore float64) float64 {
	pct := math.Round(((cosineScore+1)/2)*100*10) / 10
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
