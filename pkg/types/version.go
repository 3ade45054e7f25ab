package types

import "fmt"

// Version 协议版本（以序号比较）
//
// 线上只传输序号；名称仅用于日志。
type Version struct {
	Ordinal int16
	Name    string
}

// 已知版本序号
var (
	VersionGFE57    = Version{Ordinal: 1, Name: "GFE_57"}
	VersionGFE58    = Version{Ordinal: 3, Name: "GFE_58"}
	VersionGFE603   = Version{Ordinal: 4, Name: "GFE_603"}
	VersionGFE61    = Version{Ordinal: 5, Name: "GFE_61"}
	VersionGFE65    = Version{Ordinal: 6, Name: "GFE_65"}
	VersionGFE651   = Version{Ordinal: 7, Name: "GFE_651"}
	VersionGFE66    = Version{Ordinal: 16, Name: "GFE_66"}
	VersionGFE70    = Version{Ordinal: 19, Name: "GFE_70"}
	VersionGFE80    = Version{Ordinal: 30, Name: "GFE_80"}
	VersionGFE90    = Version{Ordinal: 45, Name: "GFE_90"}
	VersionGeode110 = Version{Ordinal: 50, Name: "GEODE_110"}
	VersionGeode130 = Version{Ordinal: 70, Name: "GEODE_130"}
	VersionGeode150 = Version{Ordinal: 80, Name: "GEODE_150"}

	// VersionCurrent 本实现的协议版本
	VersionCurrent = VersionGeode150
)

var knownVersions = []Version{
	VersionGFE57, VersionGFE58, VersionGFE603, VersionGFE61, VersionGFE65,
	VersionGFE651, VersionGFE66, VersionGFE70, VersionGFE80, VersionGFE90,
	VersionGeode110, VersionGeode130, VersionGeode150,
}

// VersionFromOrdinal 根据序号查找版本
//
// 未知序号仍返回可比较的版本值，名称为空。
func VersionFromOrdinal(ordinal int16) Version {
	for _, v := range knownVersions {
		if v.Ordinal == ordinal {
			return v
		}
	}
	return Version{Ordinal: ordinal}
}

// Compare 比较两个版本：小于返回 -1，等于 0，大于 1
func (v Version) Compare(other Version) int {
	switch {
	case v.Ordinal < other.Ordinal:
		return -1
	case v.Ordinal > other.Ordinal:
		return 1
	default:
		return 0
	}
}

// AtLeast v >= other
func (v Version) AtLeast(other Version) bool {
	return v.Ordinal >= other.Ordinal
}

// Before v < other
func (v Version) Before(other Version) bool {
	return v.Ordinal < other.Ordinal
}

// String 返回版本名称
func (v Version) String() string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("Version(%d)", v.Ordinal)
}
