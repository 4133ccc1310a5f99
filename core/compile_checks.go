package core

var (
	_ MediaStorage    = (*MemoryMediaStorage)(nil)
	_ MediaStorage    = (*ProxyMediaStorage)(nil)
	_ StorageClass    = ProxyStorageClass{}
	_ StorageClass    = MemoryStorageClass{}
	_ StorageClass    = StorageClassFunc(nil)
	_ IndexStore      = (*MemoryIndexStore)(nil)
	_ MetricsRecorder = NopMetricsRecorder{}
	_ ConfigObject    = MapObject(nil)
	_ ConfigObject    = ObjectFunc(nil)
	_ ConfigObject    = YAMLFile("")
	_ ConfigObject    = JSONCFile("")
	_ Override        = MappingOverride(nil)
	_ Override        = ObjectOverride{}
	_ OptionsResolver = GoOptionsResolver{}
)
