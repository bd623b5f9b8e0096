package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "gender", CanonicalKey("性别"))
	assert.Equal(t, "diagnosis_date", CanonicalKey("确诊时间"))
	assert.Equal(t, "insulin_route", CanonicalKey("用药方式"))
	// 已是规范键或未知键原样返回
	assert.Equal(t, "age", CanonicalKey("age"))
	assert.Equal(t, "自定义键", CanonicalKey("自定义键"))
}

func TestCanonicalValueCGM(t *testing.T) {
	assert.Equal(t, "false", CanonicalValue("cgm_usage", "没有使用"))
	assert.Equal(t, "false", CanonicalValue("cgm_usage", "未使用"))
	assert.Equal(t, "true", CanonicalValue("cgm_usage", "一直在使用"))
	assert.Equal(t, "false", CanonicalValue("cgm_usage", "不确定"))
}

func TestCanonicalValueGender(t *testing.T) {
	assert.Equal(t, "男", CanonicalValue("gender", "男孩"))
	assert.Equal(t, "女", CanonicalValue("gender", "女生"))
	assert.Equal(t, "未知", CanonicalValue("gender", "未知"))
}

func TestCanonicalValueInsulinRoute(t *testing.T) {
	assert.Equal(t, "胰岛素泵", CanonicalValue("insulin_route", "用的泵"))
	assert.Equal(t, "胰岛素笔注射", CanonicalValue("insulin_route", "胰岛素笔"))
	assert.Equal(t, "每日多次注射", CanonicalValue("insulin_route", "每日多次注射"))
}

func TestCanonicalValueOtherKeysUnchanged(t *testing.T) {
	assert.Equal(t, "2023年5月", CanonicalValue("diagnosis_date", "2023年5月"))
}
