package profile

import (
	"encoding/json"
	"fmt"
)

// MergeMaps 实现文档更新的合并规则：
// 每一层嵌套都做浅合并（src 的键覆盖 dst 的键），数组整体替换、不逐项合并。
// 这是唯一的合并契约，禁止按字段猜测意图。
func MergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		if !srcIsMap {
			dst[key] = value
			continue
		}
		dstMap, dstIsMap := dst[key].(map[string]any)
		if !dstIsMap {
			dst[key] = srcMap
			continue
		}
		dst[key] = MergeMaps(dstMap, srcMap)
	}
	return dst
}

// mergePersonal 把部分更新深合并进现有的 personal 块。
// 不带某个键的更新不会动到该键（naive 的整体 $set 会静默抹掉未触及字段）。
// avatar 槽位由替换协议独立管理，这里显式剔除。
// updates 归调用方所有，拷贝后再用，不原地改写。
func mergePersonal(current Personal, updates map[string]any) (Personal, error) {
	if len(updates) == 0 {
		return current, nil
	}

	filtered := make(map[string]any, len(updates))
	for key, value := range updates {
		if key == "avatar" {
			continue
		}
		filtered[key] = value
	}
	updates = filtered

	currentRaw, err := json.Marshal(current)
	if err != nil {
		return Personal{}, fmt.Errorf("marshal personal: %w", err)
	}
	var currentMap map[string]any
	if err := json.Unmarshal(currentRaw, &currentMap); err != nil {
		return Personal{}, fmt.Errorf("unmarshal personal: %w", err)
	}

	merged := MergeMaps(currentMap, updates)
	mergedRaw, err := json.Marshal(merged)
	if err != nil {
		return Personal{}, fmt.Errorf("marshal merged personal: %w", err)
	}

	var result Personal
	if err := json.Unmarshal(mergedRaw, &result); err != nil {
		return Personal{}, fmt.Errorf("unmarshal merged personal: %w", err)
	}
	result.Avatar = current.Avatar
	return result, nil
}
