package sqlstore

import "github.com/goliatone/go-assembly/core"

var (
	_ core.MediaStorage = (*MediaStore)(nil)
	_ core.MediaStorage = (*CachedMediaStore)(nil)
	_ core.IndexStore   = (*IndexStore)(nil)
)
