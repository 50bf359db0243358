// Command vexdemo boots a window, loads a scene manifest, and runs the
// simulate/extract/render pipeline until the window is closed.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/config"
	"github.com/kestrelgfx/vex/engine/coordinator"
	"github.com/kestrelgfx/vex/engine/core"
	"github.com/kestrelgfx/vex/engine/gpuset"
	"github.com/kestrelgfx/vex/engine/math"
	"github.com/kestrelgfx/vex/engine/platform"
	"github.com/kestrelgfx/vex/engine/render"
	vkn "github.com/kestrelgfx/vex/engine/renderer/vulkan"
	"github.com/kestrelgfx/vex/engine/world"
)

func main() {
	manifestPath := flag.String("scene", "scene.toml", "path to the scene manifest")
	flag.Parse()

	if err := run(*manifestPath); err != nil {
		core.LogFatal("vexdemo: %s", err.Error())
		os.Exit(1)
	}
}

func run(manifestPath string) error {
	manifest, err := config.Load(manifestPath)
	if err != nil {
		return err
	}

	plat, err := platform.New()
	if err != nil {
		return err
	}
	if err := plat.Startup(manifest.Window.Title, 100, 100, manifest.Window.Width, manifest.Window.Height); err != nil {
		return err
	}

	renderer := vkn.New(plat)
	if err := renderer.Initialize(manifest.Window.Title, manifest.Window.Width, manifest.Window.Height); err != nil {
		return err
	}
	context := renderer.Context()

	store := assets.NewAssetStore()
	for _, relative := range manifest.Assets.Models {
		if _, err := store.LoadModel(manifest.Assets.ModelPath(relative)); err != nil {
			return err
		}
	}

	var cubemapFaces [6]string
	for i, relative := range manifest.Assets.CubemapFaces {
		cubemapFaces[i] = manifest.Assets.ModelPath(relative)
	}
	cubemap, err := store.LoadCubemap(cubemapFaces)
	if err != nil {
		return err
	}

	resident, err := gpuset.Create(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue, store)
	if err != nil {
		return err
	}
	cubemapView, err := resident.CubemapView(context, cubemap)
	if err != nil {
		return err
	}

	colorFormat := context.Swapchain.ImageFormat.Format
	depthFormat := context.Device.DepthFormat
	sampleCount := render.MsaaSampleCount

	cullingPipeline, err := render.NewCullingPipeline(context, "assets/shaders/cull.comp.spv")
	if err != nil {
		return err
	}
	pbrPipeline, err := render.NewPbrPipeline(context, store, resident, "assets/shaders/pbr.vert.spv", "assets/shaders/pbr.frag.spv", colorFormat, depthFormat, sampleCount)
	if err != nil {
		return err
	}
	skyboxPipeline, err := render.NewSkyboxPipeline(context, cubemapView, "assets/shaders/skybox.vert.spv", "assets/shaders/skybox.frag.spv", colorFormat, depthFormat, sampleCount)
	if err != nil {
		return err
	}
	msaa, err := render.NewMsaaTarget(context, colorFormat, manifest.Window.Width, manifest.Window.Height)
	if err != nil {
		return err
	}

	pipelines := render.Pipelines{Culling: cullingPipeline, Pbr: pbrPipeline, Skybox: skyboxPipeline}

	scene := buildScene(store, manifest)

	coord := coordinator.New(coordinator.Config{
		Platform:  plat,
		Renderer:  renderer,
		Store:     store,
		Resident:  resident,
		Pipelines: pipelines,
		Msaa:      msaa,
		Scene:     scene,
		OnCamera:  orbitCamera,
		OnResize: func(width, height uint32) {
			if err := msaa.Resize(width, height); err != nil {
				core.LogError("msaa resize failed: %s", err.Error())
			}
		},
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		plat.Window.SetShouldClose(true)
	}()

	coord.Run()

	skyboxPipeline.Destroy()
	pbrPipeline.Destroy()
	cullingPipeline.Destroy()
	msaa.Destroy()
	resident.Destroy(context)
	if err := renderer.Shutdown(); err != nil {
		core.LogError("renderer shutdown failed: %s", err.Error())
	}
	return plat.Shutdown()
}

// buildScene spawns one instance per manifest model at the origin, a
// single ambient+point light rig, and a camera orbiting the scene.
func buildScene(store *assets.AssetStore, manifest *config.SceneConfig) *world.World {
	scene := world.NewWorld()

	for id := assets.ModelId(0); int(id) < store.ModelCount(); id++ {
		scene.InstantiateModel(store.Model(id), math.Vec3{}, math.NewQuatIdentity(), math.NewVec3One())
	}

	scene.Lights.Ambient = world.AmbientLight{Color: math.NewVec3(1, 1, 1), Intensity: 0.05}
	scene.Lights.SetPointLights([]world.PointLight{
		{Position: math.NewVec3(4, 6, 4), Color: math.NewVec3(1, 1, 1), Intensity: 20, Radius: 25},
	})

	aspect := float32(manifest.Window.Width) / float32(manifest.Window.Height)
	scene.Camera = world.Camera{
		Position:    math.NewVec3(0, 2, 8),
		FovRadians:  math.DegToRad(60),
		AspectRatio: aspect,
		NearClip:    0.1,
		FarClip:     1000,
		Yaw:         0,
		Pitch:       0,
	}
	recomputeViewProjection(&scene.Camera)

	return scene
}

// orbitCamera rotates the camera's position around the world Y axis at a
// fixed angular rate and re-derives ViewProjection from the new position,
// looking back at the origin.
func orbitCamera(dt float64, camera *world.Camera) {
	rotation := math.NewQuatFromAxisAngle(math.NewVec3(0, 1, 0), float32(dt)*0.3, true)
	camera.Position = camera.Position.Transform(rotation.ToMat4())
	recomputeViewProjection(camera)
}

func recomputeViewProjection(camera *world.Camera) {
	view := math.NewMat4LookAt(camera.Position, math.Vec3{}, math.NewVec3(0, 1, 0))
	projection := math.NewMat4Perspective(camera.FovRadians, camera.AspectRatio, camera.NearClip, camera.FarClip)
	camera.ViewProjection = view.Mul(projection)
}
