package core

var (
	_ Registry = (*HandlerRegistry)(nil)
	_ Handler  = (*LogOnlyHandler)(nil)

	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}
	_ RawConfigLoader = StaticRawConfigLoader{}
)
