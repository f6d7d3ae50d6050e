package renderer

const voxelVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec4 aColour;
layout (location = 2) in vec3 aUV;
layout (location = 3) in float aNormal;

uniform mat4 uView;
uniform mat4 uProjection;

out vec4 vColour;
out vec3 vNormal;
out vec3 vWorld;

const vec3 normals[6] = vec3[6](
	vec3(-1, 0, 0), vec3(1, 0, 0),
	vec3(0, -1, 0), vec3(0, 1, 0),
	vec3(0, 0, -1), vec3(0, 0, 1)
);

void main() {
	vColour = aColour;
	vNormal = normals[clamp(int(aNormal + 0.5), 0, 5)];
	vWorld = aPos;
	gl_Position = uProjection * uView * vec4(aPos, 1.0);
}
`

const voxelFragmentShader = `
#version 410 core

in vec4 vColour;
in vec3 vNormal;
in vec3 vWorld;

uniform vec3 uLightDir;
uniform vec3 uCameraPos;
uniform float uAmbient;
uniform float uFogDistance;

out vec4 FragColor;

void main() {
	float diffuse = max(dot(vNormal, -normalize(uLightDir)), 0.0);
	vec3 lit = vColour.rgb * (uAmbient + (1.0 - uAmbient) * diffuse);
	float fog = clamp(distance(vWorld, uCameraPos) / uFogDistance, 0.0, 1.0);
	FragColor = vec4(mix(lit, vec3(0.1, 0.1, 0.15), fog * fog), vColour.a);
}
`
