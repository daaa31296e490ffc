package models

import "gorm.io/datatypes"

// ComponentCode is the jsx/css/props triple embedded in sessions and messages.
type ComponentCode struct {
	JSX   string            `json:"jsx" gorm:"type:text"`
	CSS   string            `json:"css" gorm:"type:text"`
	Props datatypes.JSONMap `json:"props"`
}

func (c ComponentCode) IsEmpty() bool {
	return c.JSX == "" && c.CSS == ""
}

// MergeProps shallow-merges incoming over the existing props.
func MergeProps(existing, incoming map[string]interface{}) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}
