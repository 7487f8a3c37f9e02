package service

import "Tradeline/internal/pkg/consts"

// Identity 已鉴权身份的显式能力值，随调用链传入每个核心操作，
// 管理员能力在这里判定一次，不在各调用点临时推断
type Identity struct {
	UserID string
	Roles  []string
}

func (i Identity) IsAdmin() bool {
	for _, r := range i.Roles {
		if r == consts.RoleAdmin {
			return true
		}
	}
	return false
}
