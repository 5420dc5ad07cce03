package service

import (
	"fmt"
	"strconv"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
)

// evaluateConditions 对迁移条件逐条求值，全部满足才放行
// 求值域 = 实体快照被载荷字段覆盖后的合并视图
func evaluateConditions(conditions entity.ConditionList, scope map[string]interface{}) (bool, string) {
	for _, c := range conditions {
		ok, why := evaluateCondition(c, scope)
		if !ok {
			return false, why
		}
	}
	return true, ""
}

func evaluateCondition(c entity.TransitionCondition, scope map[string]interface{}) (bool, string) {
	value, present := scope[c.Field]

	switch c.Kind {
	case entity.ConditionFieldNotEmpty:
		if !present || isEmptyValue(value) {
			return false, fmt.Sprintf("field %s is empty", c.Field)
		}
		return true, ""

	case entity.ConditionFieldEquals:
		if !present {
			return false, fmt.Sprintf("field %s is missing", c.Field)
		}
		if fmt.Sprintf("%v", value) != fmt.Sprintf("%v", c.Value) {
			return false, fmt.Sprintf("field %s must equal %v", c.Field, c.Value)
		}
		return true, ""

	case entity.ConditionFieldGT, entity.ConditionFieldLT:
		lhs, ok1 := toFloat(value)
		rhs, ok2 := toFloat(c.Value)
		if !present || !ok1 || !ok2 {
			return false, fmt.Sprintf("field %s is not comparable", c.Field)
		}
		if c.Kind == entity.ConditionFieldGT && !(lhs > rhs) {
			return false, fmt.Sprintf("field %s must be greater than %v", c.Field, c.Value)
		}
		if c.Kind == entity.ConditionFieldLT && !(lhs < rhs) {
			return false, fmt.Sprintf("field %s must be less than %v", c.Field, c.Value)
		}
		return true, ""

	case entity.ConditionFieldIn:
		if !present {
			return false, fmt.Sprintf("field %s is missing", c.Field)
		}
		have := fmt.Sprintf("%v", value)
		for _, candidate := range c.Values {
			if fmt.Sprintf("%v", candidate) == have {
				return true, ""
			}
		}
		return false, fmt.Sprintf("field %s must be one of %v", c.Field, c.Values)

	default:
		// 未知条件类型按不满足处理，避免静默放行
		return false, fmt.Sprintf("unknown condition kind: %s", c.Kind)
	}
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	default:
		return false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
