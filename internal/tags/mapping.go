// Package tags 集中维护标签键的中文同义词映射与取值规范化规则，
// 提取器与标签映射接口共用同一份表。
package tags

import (
	"strings"
)

// KeyMapping 中文标签键 → 规范英文键
var KeyMapping = map[string]string{
	"姓名":          "nickname",
	"性别":          "gender",
	"年龄":          "age",
	"糖尿病类型":       "diabetes_type",
	"诊断日期":        "diagnosis_date",
	"确诊时间":        "diagnosis_date",
	"病程":          "disease_duration_years",
	"胰岛素给药途径":     "insulin_route",
	"胰岛素给药方式":     "insulin_route",
	"用药方式":        "insulin_route",
	"CGM使用情况":     "cgm_usage",
	"动态血糖监测仪":     "cgm_usage",
	"动态血糖监测使用情况":  "cgm_usage",
	"监测设备使用":      "cgm_usage",
	"胰岛素泵使用情况":    "cgm_usage",
	"血糖控制情况":      "blood_glucose_control",
	"并发症":         "complications",
	"家族史":         "family_history",
	"BMI指数":       "bmi",
	"血压":          "blood_pressure",
	"运动频率":        "exercise_frequency",
	"饮食习惯":        "diet_habits",
	"用户身份":        "user_identity",
	"与患儿关系":       "relationship_to_child",
	"与患者关系":       "relationship_to_patient",
	"患儿年龄":        "child_age",
	"患儿性别":        "child_gender",
	"患者年龄":        "patient_age",
	"对话频率":        "conversation_frequency",
	"咨询目的":        "consultation_purpose",
}

// RequiredOnboardingKeys 初次对话信息收集必须齐全的标签
var RequiredOnboardingKeys = []string{
	"age",
	"gender",
	"diabetes_type",
	"disease_duration_years",
	"insulin_route",
	"cgm_usage",
}

// OnboardingCompletedKey 信息收集完成标记
const OnboardingCompletedKey = "onboarding_completed"

// CanonicalKey 将中文同义键映射为规范键；未知键原样返回
func CanonicalKey(key string) string {
	if mapped, ok := KeyMapping[key]; ok {
		return mapped
	}
	return key
}

// CanonicalValue 对特定标签键做取值规范化
func CanonicalValue(key, value string) string {
	switch key {
	case "cgm_usage":
		lower := strings.ToLower(value)
		if strings.Contains(lower, "没有") || strings.Contains(lower, "未使用") || strings.Contains(lower, "不用") {
			return "false"
		}
		if strings.Contains(lower, "使用") || strings.Contains(lower, "有") {
			return "true"
		}
		return "false"
	case "gender":
		if strings.Contains(value, "男") {
			return "男"
		}
		if strings.Contains(value, "女") {
			return "女"
		}
	case "insulin_route":
		if strings.Contains(value, "泵") {
			return "胰岛素泵"
		}
		if strings.Contains(value, "笔") {
			return "胰岛素笔注射"
		}
	}
	return value
}
