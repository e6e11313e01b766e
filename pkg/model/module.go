package model

// ProductType is the kind of artifact a module produces.
type ProductType string

const (
	ProductLib        ProductType = "lib"
	ProductJvmApp     ProductType = "jvm/app"
	ProductAndroidApp ProductType = "android/app"
	ProductIosApp     ProductType = "ios/app"
	ProductMacosApp   ProductType = "macos/app"
	ProductLinuxApp   ProductType = "linux/app"
	ProductWindowsApp ProductType = "windows/app"
	ProductJsApp      ProductType = "js/app"
	ProductWasmApp    ProductType = "wasm/app"
)

// defaultPlatforms are the platforms of application products that do not list any.
var defaultPlatforms = map[ProductType][]string{
	ProductJvmApp:     {"jvm"},
	ProductAndroidApp: {"android"},
	ProductIosApp:     {"iosArm64", "iosSimulatorArm64", "iosX64"},
	ProductMacosApp:   {"macosArm64", "macosX64"},
	ProductLinuxApp:   {"linuxX64", "linuxArm64"},
	ProductWindowsApp: {"mingwX64"},
	ProductJsApp:      {"js"},
	ProductWasmApp:    {"wasm"},
}

// Module is the typed form of a complete module value.
type Module struct {
	Product      Product             `mapstructure:"product"`
	Aliases      map[string][]string `mapstructure:"aliases"`
	Apply        []string            `mapstructure:"apply"`
	Settings     Settings            `mapstructure:"settings"`
	Dependencies []Dependency        `mapstructure:"dependencies" validate:"dive"`
	Repositories []Repository        `mapstructure:"repositories" validate:"dive"`
	Tasks        map[string]Task     `mapstructure:"tasks"`
}

// Product describes what the module builds.
type Product struct {
	Type      ProductType `mapstructure:"type" validate:"required,oneof=lib jvm/app android/app ios/app macos/app linux/app windows/app js/app wasm/app"`
	Platforms []string    `mapstructure:"platforms" validate:"omitempty,dive,required"`
}

// ProductType returns the product type.
func (m *Module) ProductType() ProductType {
	return m.Product.Type
}

// Platforms returns the declared product platforms, or the platforms implied by an
// application product type. A library without platforms has none.
func (m *Module) Platforms() []string {
	if len(m.Product.Platforms) > 0 {
		return m.Product.Platforms
	}
	return defaultPlatforms[m.Product.Type]
}

// IsApplication reports whether the module builds an application.
func (m *Module) IsApplication() bool {
	return m.Product.Type != ProductLib
}

// Settings groups the toolchain settings.
type Settings struct {
	Jvm        Jvm         `mapstructure:"jvm"`
	Kotlin     Kotlin      `mapstructure:"kotlin"`
	Android    Android     `mapstructure:"android"`
	Compose    Compose     `mapstructure:"compose"`
	Ios        Ios         `mapstructure:"ios"`
	Native     Native      `mapstructure:"native"`
	Publishing *Publishing `mapstructure:"publishing"`
	Junit      string      `mapstructure:"junit" validate:"oneof=junit-5 junit-4 none"`
}

type Jvm struct {
	Release   int     `mapstructure:"release" validate:"gte=8"`
	MainClass *string `mapstructure:"mainClass"`
}

type Kotlin struct {
	LanguageVersion     string   `mapstructure:"languageVersion" validate:"required"`
	APIVersion          string   `mapstructure:"apiVersion" validate:"required"`
	AllWarningsAsErrors bool     `mapstructure:"allWarningsAsErrors"`
	FreeCompilerArgs    []string `mapstructure:"freeCompilerArgs"`
	OptIns              []string `mapstructure:"optIns"`
}

type Android struct {
	CompileSdk    int    `mapstructure:"compileSdk" validate:"gte=21"`
	MinSdk        int    `mapstructure:"minSdk" validate:"gte=21"`
	TargetSdk     int    `mapstructure:"targetSdk" validate:"gte=21"`
	Namespace     string `mapstructure:"namespace" validate:"required"`
	ApplicationID string `mapstructure:"applicationId" validate:"required"`
	VersionCode   int    `mapstructure:"versionCode" validate:"gte=1"`
	VersionName   string `mapstructure:"versionName"`
}

type Compose struct {
	Enabled bool    `mapstructure:"enabled"`
	Version *string `mapstructure:"version"`
}

type Ios struct {
	TeamID    *string      `mapstructure:"teamId"`
	Framework IosFramework `mapstructure:"framework"`
}

type IosFramework struct {
	Basename string `mapstructure:"basename" validate:"required"`
	IsStatic bool   `mapstructure:"isStatic"`
}

type Native struct {
	EntryPoint *string `mapstructure:"entryPoint"`
}

// Publishing holds the Maven coordinates of a published module.
type Publishing struct {
	Group           string  `mapstructure:"group" validate:"required"`
	Version         string  `mapstructure:"version" validate:"required"`
	Name            *string `mapstructure:"name"`
	SnapshotVersion string  `mapstructure:"snapshotVersion"`
}

// Dependency is a Maven dependency.
type Dependency struct {
	Coordinates string `mapstructure:"coordinates" validate:"required"`
	Scope       string `mapstructure:"scope" validate:"oneof=all compile-only runtime-only"`
	Exported    bool   `mapstructure:"exported"`
}

// Repository is a Maven repository used for resolution or publishing.
type Repository struct {
	URL         string       `mapstructure:"url" validate:"required,url"`
	ID          string       `mapstructure:"id" validate:"required"`
	Publish     bool         `mapstructure:"publish"`
	Resolve     bool         `mapstructure:"resolve"`
	Credentials *Credentials `mapstructure:"credentials"`
}

type Credentials struct {
	File        string `mapstructure:"file" validate:"required"`
	UsernameKey string `mapstructure:"usernameKey" validate:"required"`
	PasswordKey string `mapstructure:"passwordKey" validate:"required"`
}

type Task struct {
	DependsOn []string `mapstructure:"dependsOn"`
}
